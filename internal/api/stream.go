package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/huewatch/core/internal/stream"
)

// handleEventStream streams decoded bridge events as newline-delimited JSON.
//
// The retained replay window is sent first so a new consumer starts with
// recent context, then live events follow as they arrive. The connection
// stays open until the client leaves or the bus closes.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	s.ensureIngestion()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	// Subscribe before replaying so no event falls between the snapshot and
	// the live tail; the duplicate risk is a replayed event arriving twice,
	// which consumers already tolerate.
	sub := s.bus.Subscribe()

	// ?replay=0 skips the retained window for consumers that only want the
	// live tail (they reconcile state from the aggregate fetch instead).
	var replay []stream.CachedEvent
	if q := r.URL.Query().Get("replay"); q != "0" && q != "false" {
		replay = s.cache.Snapshot()
	}

	// The server-wide write timeout would cut the stream off; lift it for
	// this response only.
	rc := http.NewResponseController(w)
	//nolint:errcheck // Not all wrappers support deadlines; stream still works
	rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, ev := range replay {
		if _, err := w.Write(append(ev.Raw, '\n')); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, stream.ErrLagged):
				s.logger.Warn("event stream client lagged, resuming from oldest",
					"request_id", ctx.Value(ctxKeyRequestID),
				)
				continue
			case errors.Is(err, stream.ErrClosed):
				return
			default:
				// Context cancelled; client went away.
				return
			}
		}
		if _, err := w.Write(append(msg, '\n')); err != nil {
			return
		}
		flusher.Flush()
	}
}
