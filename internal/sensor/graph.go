package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoLegacyID is returned when a sensor has no v1 sensor number and so
// cannot be matched against recorder rows.
var ErrNoLegacyID = errors.New("sensor has no legacy id")

// GraphPoint is one recorded reading on a 24-hour graph.
type GraphPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Graph is the recorded series for one composite sensor. Capabilities with
// no recorder rows in the range are empty, not nil, so the payload shape is
// stable.
type Graph struct {
	DeviceID    string       `json:"device_id"`
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	Motion      []GraphPoint `json:"motion"`
	Temperature []GraphPoint `json:"temperature"`
	LightLevel  []GraphPoint `json:"light_level"`
}

// GraphReader reads long-range readings from the legacy recorder database.
// The recorder is an external process; huewatch only ever reads from it.
// Rows are keyed by the v1 sensor number each service carried before the
// CLIP v2 migration.
type GraphReader struct {
	db *sql.DB
}

// NewGraphReader creates a reader over an open recorder database.
func NewGraphReader(db *sql.DB) *GraphReader {
	return &GraphReader{db: db}
}

// Graph loads the recorded series for one composite over [from, to).
// Capabilities the composite does not carry, or that have no v1 number,
// are returned empty.
func (r *GraphReader) Graph(ctx context.Context, c *CompositeSensor, from, to time.Time) (*Graph, error) {
	if c.LegacyID == 0 {
		return nil, ErrNoLegacyID
	}

	g := &Graph{
		DeviceID:    c.DeviceID,
		From:        from,
		To:          to,
		Motion:      []GraphPoint{},
		Temperature: []GraphPoint{},
		LightLevel:  []GraphPoint{},
	}

	var err error
	if c.Motion != nil && c.Motion.LegacyID != 0 {
		g.Motion, err = r.series(ctx, "sensor_motion", c.Motion.LegacyID, from, to)
		if err != nil {
			return nil, err
		}
	}
	if c.Temperature != nil && c.Temperature.LegacyID != 0 {
		g.Temperature, err = r.series(ctx, "sensor_temperature", c.Temperature.LegacyID, from, to)
		if err != nil {
			return nil, err
		}
	}
	if c.LightLevel != nil && c.LightLevel.LegacyID != 0 {
		g.LightLevel, err = r.series(ctx, "sensor_light_level", c.LightLevel.LegacyID, from, to)
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// series loads one capability's rows. The recorder stores timestamps as
// unix seconds.
func (r *GraphReader) series(ctx context.Context, table string, legacyID int, from, to time.Time) ([]GraphPoint, error) {
	// table is one of three fixed names, never caller input.
	query := fmt.Sprintf(
		"SELECT recorded_at, value FROM %s WHERE sensor_id = ? AND recorded_at >= ? AND recorded_at < ? ORDER BY recorded_at",
		table,
	)
	rows, err := r.db.QueryContext(ctx, query, legacyID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	points := []GraphPoint{}
	for rows.Next() {
		var at int64
		var value float64
		if err := rows.Scan(&at, &value); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		points = append(points, GraphPoint{Time: time.Unix(at, 0).UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", table, err)
	}
	return points, nil
}
