package mqtt

import (
	"fmt"
	"strings"
)

// Topic structure for huewatch.
//
// All topics live under a single root:
//
//	huewatch/system/status              retained service online/offline
//	huewatch/state/{kind}/{resource}    retained latest reading per service
//
// {kind} is one of motion, temperature or light_level; {resource} is the
// service's resource id. Readings are retained so a consumer joining late
// immediately sees the current state of every sensor.
const topicRoot = "huewatch"

// Topics provides type-safe topic construction.
// Using methods instead of string concatenation prevents typos and keeps
// the topic structure in one place.
type Topics struct{}

// SystemStatus returns the service status topic.
func (Topics) SystemStatus() string {
	return topicRoot + "/system/status"
}

// SensorState returns the retained state topic for one sensing service.
func (Topics) SensorState(kind, resourceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", topicRoot, kind, resourceID)
}

// ParseSensorState extracts the kind and resource id from a sensor state
// topic. ok is false when the topic is not a sensor state topic.
func (Topics) ParseSensorState(topic string) (kind, resourceID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != topicRoot || parts[1] != "state" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
