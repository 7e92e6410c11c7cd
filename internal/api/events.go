package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/menza/internal/feed"
	"github.com/erazemk/menza/internal/menu"
)

// DefaultKeepAlive is the interval between keep-alive comments on idle streams.
const DefaultKeepAlive = 25 * time.Second

// EventsHandler streams menu snapshots as server-sent events.
type EventsHandler struct {
	Service   *menu.Service
	Hub       *feed.Hub
	KeepAlive time.Duration
}

// Stream handles GET /api/events. A full snapshot is sent on connect and after
// every change.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	ctx := r.Context()
	events := h.Hub.Subscribe(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		snap, err := h.Service.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(); err != nil {
		slog.Warn("event stream closed", "error", err, "request_id", RequestIDFromContext(ctx))
		return
	}

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			// Coalesce bursts into one snapshot.
			drain(events)
			if err := send(); err != nil {
				if ctx.Err() == nil {
					slog.Warn("event stream closed", "error", err, "request_id", RequestIDFromContext(ctx))
				}
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func drain[T any](ch <-chan T) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
