// Package feed fans menu change events out to in-process subscribers such as
// server-sent event streams.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/erazemk/menza/internal/model"
)

// subscriberBuffer is the number of undelivered events kept per subscriber.
const subscriberBuffer = 16

// Hub is a change notifier that broadcasts events to subscribers.
// A subscriber that falls behind loses events instead of blocking publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan model.ChangeEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan model.ChangeEvent]struct{})}
}

// Subscribe registers a subscriber. The returned channel is closed when ctx
// is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan model.ChangeEvent {
	ch := make(chan model.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev model.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping change event for slow subscriber", "type", ev.Type)
		}
	}
}

// Notify implements menu.Notifier.
func (h *Hub) Notify(_ context.Context, ev model.ChangeEvent) error {
	h.Publish(ev)
	return nil
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
