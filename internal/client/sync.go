package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
)

// Update is delivered to sync callbacks.
type Update struct {
	Snapshot model.Snapshot
	// Stale is set when Snapshot is a cached or default menu because the
	// server could not be reached. Err holds the cause.
	Stale bool
	Err   error
}

// ErrInvalidInterval is returned by Poll when the interval is not positive.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// Syncer keeps a local copy of the menu in step with the server.
type Syncer struct {
	Client *Client
	// Interval between polls.
	Interval time.Duration
	// RetryDelay is the wait before reconnecting a dropped event stream.
	RetryDelay time.Duration

	last    []byte
	cached  *model.Snapshot
	failing bool
}

// NewSyncer creates a syncer with the given poll interval.
func NewSyncer(c *Client, interval time.Duration) *Syncer {
	return &Syncer{Client: c, Interval: interval, RetryDelay: 5 * time.Second}
}

// fallback returns the last good snapshot or, if none, the default menu.
func (s *Syncer) fallback() model.Snapshot {
	if s.cached != nil {
		return *s.cached
	}
	return model.Snapshot{Items: menu.DefaultItems()}
}

// accept records a fresh snapshot and reports whether it differs from the
// previously emitted one.
func (s *Syncer) accept(snap model.Snapshot) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		return true
	}
	recovered := s.failing
	s.failing = false
	s.cached = &snap
	if !recovered && bytes.Equal(data, s.last) {
		return false
	}
	s.last = data
	return true
}

// fail reports whether a failure update should be emitted. Only the first
// failure of a streak is reported.
func (s *Syncer) fail() bool {
	if s.failing {
		return false
	}
	s.failing = true
	return true
}

// Poll fetches the menu every Interval and calls fn when it changed. It
// returns when ctx is done.
func (s *Syncer) Poll(ctx context.Context, fn func(Update)) error {
	if s.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s.Interval)
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		snap, err := s.Client.Snapshot(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			if s.fail() {
				fn(Update{Snapshot: s.fallback(), Stale: true, Err: err})
			}
		case s.accept(snap):
			fn(Update{Snapshot: snap})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Subscribe follows the server's event stream, calling fn with every full
// snapshot it receives. Dropped streams are reconnected after RetryDelay. It
// returns when ctx is done.
func (s *Syncer) Subscribe(ctx context.Context, fn func(Update)) error {
	for {
		err := s.stream(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && s.fail() {
			fn(Update{Snapshot: s.fallback(), Stale: true, Err: err})
		}
		slog.Debug("event stream ended, reconnecting", "error", err, "delay", s.RetryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.RetryDelay):
		}
	}
}

// stream reads one event stream connection until it ends.
func (s *Syncer) stream(ctx context.Context, fn func(Update)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Client.BaseURL+"/events", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.Client.stream.Do(req)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "snapshot" && data.Len() > 0 {
				var snap model.Snapshot
				if err := json.Unmarshal([]byte(data.String()), &snap); err != nil {
					return fmt.Errorf("decoding snapshot: %w", err)
				}
				if s.accept(snap) {
					fn(Update{Snapshot: snap})
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Keep-alive comment.
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return mapError(err)
	}
	return fmt.Errorf("%w: event stream closed", ErrUnreachable)
}
