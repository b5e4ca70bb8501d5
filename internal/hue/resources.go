package hue

// Wire types for the CLIP v2 resource collections huewatch reads.
// Optional fields mirror the bridge's payloads: report objects and owner
// links are frequently absent, and absence is meaningful (a motion resource
// without a report has never observed anything).

// ResourceIdentifier is a reference to another resource.
type ResourceIdentifier struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

// Metadata carries the user-visible name of a resource.
type Metadata struct {
	Name string `json:"name"`
}

// ProductData describes the physical product backing a device.
type ProductData struct {
	ProductName string `json:"product_name"`
}

// Device is a physical device registered on the bridge.
type Device struct {
	ID          string               `json:"id"`
	IDV1        string               `json:"id_v1,omitempty"`
	Metadata    *Metadata            `json:"metadata,omitempty"`
	ProductData *ProductData         `json:"product_data,omitempty"`
	Services    []ResourceIdentifier `json:"services,omitempty"`
}

// Room is a room grouping on the bridge.
type Room struct {
	ID       string               `json:"id"`
	Metadata *Metadata            `json:"metadata,omitempty"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

// Zone is a zone grouping on the bridge.
type Zone struct {
	ID       string               `json:"id"`
	Metadata *Metadata            `json:"metadata,omitempty"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

// BridgeHome is the root grouping containing every device on the bridge.
type BridgeHome struct {
	ID       string               `json:"id"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

// Light is a light service resource.
type Light struct {
	ID       string    `json:"id"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// MotionReport is the last observed motion reading.
type MotionReport struct {
	Motion  bool   `json:"motion"`
	Changed string `json:"changed,omitempty"`
}

// MotionFeature nests the report the way the bridge serialises it.
type MotionFeature struct {
	MotionReport *MotionReport `json:"motion_report,omitempty"`
}

// MotionResource is a motion sensing service.
type MotionResource struct {
	ID      string              `json:"id"`
	IDV1    string              `json:"id_v1,omitempty"`
	Owner   *ResourceIdentifier `json:"owner,omitempty"`
	Enabled *bool               `json:"enabled,omitempty"`
	Motion  *MotionFeature      `json:"motion,omitempty"`
}

// TemperatureReport is the last observed temperature reading in Celsius.
type TemperatureReport struct {
	Temperature float64 `json:"temperature"`
	Changed     string  `json:"changed,omitempty"`
}

// TemperatureFeature nests the report the way the bridge serialises it.
type TemperatureFeature struct {
	TemperatureReport *TemperatureReport `json:"temperature_report,omitempty"`
}

// TemperatureResource is a temperature sensing service.
type TemperatureResource struct {
	ID          string              `json:"id"`
	IDV1        string              `json:"id_v1,omitempty"`
	Owner       *ResourceIdentifier `json:"owner,omitempty"`
	Enabled     *bool               `json:"enabled,omitempty"`
	Temperature *TemperatureFeature `json:"temperature,omitempty"`
}

// LightLevelReport is the last observed ambient light reading.
// The value is 10000*log10(lux)+1, per the bridge's encoding.
type LightLevelReport struct {
	LightLevel int    `json:"light_level"`
	Changed    string `json:"changed,omitempty"`
}

// LightLevelFeature nests the report the way the bridge serialises it.
type LightLevelFeature struct {
	LightLevelReport *LightLevelReport `json:"light_level_report,omitempty"`
}

// LightLevelResource is an ambient light sensing service.
type LightLevelResource struct {
	ID      string              `json:"id"`
	IDV1    string              `json:"id_v1,omitempty"`
	Owner   *ResourceIdentifier `json:"owner,omitempty"`
	Enabled *bool               `json:"enabled,omitempty"`
	Light   *LightLevelFeature  `json:"light,omitempty"`
}

// listResponse is the envelope every CLIP v2 collection endpoint returns.
type listResponse[T any] struct {
	Errors []apiError `json:"errors"`
	Data   []T        `json:"data"`
}

// apiError is a bridge-reported error inside a response envelope.
type apiError struct {
	Description string `json:"description"`
}

// SensorData is the result of the consistent four-way fan-out fetch: the
// three sensor capability collections plus the device list, all taken as of
// one retry attempt so they can be joined client-side.
type SensorData struct {
	Devices      []Device
	Motions      []MotionResource
	Temperatures []TemperatureResource
	LightLevels  []LightLevelResource
}

// NameData is the result of the five-way fan-out behind the name map.
type NameData struct {
	Devices     []Device
	Rooms       []Room
	Zones       []Zone
	Lights      []Light
	BridgeHomes []BridgeHome
}
