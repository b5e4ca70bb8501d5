package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huewatch/core/internal/sensor"
)

// maxGraphHours bounds the graph query range (one week).
const maxGraphHours = 168

// sensorPayload is one composite sensor plus its change fingerprint.
type sensorPayload struct {
	sensor.CompositeSensor
	Fingerprint string `json:"fingerprint"`
}

// handleListSensors returns the current composite sensor snapshot.
//
// ?view=sparkline narrows each history to the presentation window, which is
// what the dashboard polls with; the default view carries the full retained
// window.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	s.ensureIngestion()

	sensors, err := s.store.Sensors(r.Context())
	if err != nil {
		writeUpstreamError(w, "fetching sensors from bridge failed")
		return
	}

	if r.URL.Query().Get("view") == "sparkline" {
		sensors = sensor.ToSparkline(sensors, time.Now(), s.sparkline)
	}

	payload := make([]sensorPayload, len(sensors))
	for i := range sensors {
		payload[i] = sensorPayload{
			CompositeSensor: sensors[i],
			Fingerprint:     sensors[i].Fingerprint(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": payload,
		"count":   len(payload),
	})
}

// handleGetSensor returns one composite sensor by device id.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	s.ensureIngestion()

	id := chi.URLParam(r, "id")
	c, found, err := s.store.Sensor(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, "fetching sensors from bridge failed")
		return
	}
	if !found {
		writeNotFound(w, "sensor not found")
		return
	}

	writeJSON(w, http.StatusOK, sensorPayload{
		CompositeSensor: c,
		Fingerprint:     c.Fingerprint(),
	})
}

// handleSensorGraph returns the recorded series for one sensor.
//
// ?hours=N selects the range ending now; the default is 24, capped at one
// week. Requires the recorder database.
func (s *Server) handleSensorGraph(w http.ResponseWriter, r *http.Request) {
	if s.graphs == nil {
		writeUnavailable(w, "recorder database not configured")
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxGraphHours {
			writeBadRequest(w, "hours must be between 1 and 168")
			return
		}
		hours = n
	}

	id := chi.URLParam(r, "id")
	c, found, err := s.store.Sensor(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, "fetching sensors from bridge failed")
		return
	}
	if !found {
		writeNotFound(w, "sensor not found")
		return
	}

	to := time.Now().UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)
	graph, err := s.graphs.Graph(r.Context(), &c, from, to)
	if err != nil {
		if errors.Is(err, sensor.ErrNoLegacyID) {
			writeNotFound(w, "sensor has no recorded history")
			return
		}
		s.logger.Error("graph query failed", "device_id", id, "error", err)
		writeInternalError(w, "reading recorded history failed")
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

// handleNames returns the resource id to display name mapping.
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.names.NameMap(r.Context())
	if err != nil {
		writeUpstreamError(w, "fetching names from bridge failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"names": names,
		"count": len(names),
	})
}
