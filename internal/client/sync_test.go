package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/menza/internal/model"
)

type collector struct {
	mu      sync.Mutex
	updates []Update
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 64)}
}

func (c *collector) add(u Update) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []Update {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		c.mu.Lock()
		if len(c.updates) >= n {
			out := append([]Update(nil), c.updates...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		select {
		case <-c.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d updates", n)
		}
	}
}

func TestPollEmitsOnlyOnChange(t *testing.T) {
	f, c := newFake(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f.set([]model.MenuItem{{ID: "a", Name: "Tea", Price: 10, Available: true}}, at)

	s := NewSyncer(c, 10*time.Millisecond)
	col := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Poll(ctx, col.add)
		close(done)
	}()

	col.wait(t, 1)
	// Several unchanged polls must not produce updates.
	time.Sleep(80 * time.Millisecond)

	f.set([]model.MenuItem{{ID: "a", Name: "Tea", Price: 12, Available: true}}, at.Add(time.Second))
	updates := col.wait(t, 2)
	cancel()
	<-done

	if len(updates) != 2 {
		t.Fatalf("expected exactly 2 updates, got %d", len(updates))
	}
	if updates[1].Snapshot.Items[0].Price != 12 {
		t.Errorf("expected new price, got %+v", updates[1].Snapshot.Items)
	}
	for _, u := range updates {
		if u.Stale {
			t.Errorf("unexpected stale update %+v", u)
		}
	}
}

func TestPollRejectsInvalidInterval(t *testing.T) {
	_, c := newFake(t)
	for _, interval := range []time.Duration{0, -5 * time.Second} {
		called := false
		err := NewSyncer(c, interval).Poll(context.Background(), func(Update) { called = true })
		if !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("interval %s: err = %v, want ErrInvalidInterval", interval, err)
		}
		if called {
			t.Errorf("interval %s: callback invoked", interval)
		}
	}
}

func TestPollFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSyncer(New(url+"/api"), 10*time.Millisecond)
	col := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Poll(ctx, col.add)
		close(done)
	}()

	updates := col.wait(t, 1)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if !updates[0].Stale || updates[0].Err == nil {
		t.Errorf("expected stale update with error, got %+v", updates[0])
	}
	if n := len(updates[0].Snapshot.Items); n != 39 {
		t.Errorf("expected default menu of 39 items, got %d", n)
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	if len(col.updates) != 1 {
		t.Errorf("expected a single failure update per streak, got %d", len(col.updates))
	}
}

func TestPollFallsBackToCache(t *testing.T) {
	f, c := newFake(t)
	f.set([]model.MenuItem{{ID: "a", Name: "Tea", Price: 10, Available: true}}, time.Now())

	s := NewSyncer(c, 10*time.Millisecond)
	col := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Poll(ctx, col.add)
		close(done)
	}()

	col.wait(t, 1)
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()

	updates := col.wait(t, 2)
	cancel()
	<-done

	if !updates[1].Stale {
		t.Fatalf("expected stale update, got %+v", updates[1])
	}
	if len(updates[1].Snapshot.Items) != 1 || updates[1].Snapshot.Items[0].Name != "Tea" {
		t.Errorf("expected cached menu, got %+v", updates[1].Snapshot.Items)
	}
}

func TestSubscribe(t *testing.T) {
	snapshots := make(chan model.Snapshot, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()
		for {
			select {
			case <-r.Context().Done():
				return
			case snap := <-snapshots:
				data, _ := json.Marshal(snap)
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	s := NewSyncer(New(srv.URL+"/api"), time.Second)
	col := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Subscribe(ctx, col.add)
		close(done)
	}()

	first := model.Snapshot{Items: []model.MenuItem{{ID: "a", Name: "Tea"}}}
	snapshots <- first
	snapshots <- first
	snapshots <- model.Snapshot{Items: []model.MenuItem{{ID: "a", Name: "Tea"}, {ID: "b", Name: "Coffee"}}}

	updates := col.wait(t, 2)
	cancel()
	<-done

	if len(updates) != 2 {
		t.Fatalf("expected duplicate snapshot to be suppressed, got %d updates", len(updates))
	}
	if len(updates[1].Snapshot.Items) != 2 {
		t.Errorf("unexpected second snapshot %+v", updates[1].Snapshot)
	}
}
