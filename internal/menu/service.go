// Package menu implements the menu operations shared by the JSON API and the
// web views: validation, defaults, metadata refresh and change notification.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/erazemk/menza/internal/model"
	"github.com/erazemk/menza/internal/store"
)

// ErrInvalidID is returned for ids that are not UUIDs.
var ErrInvalidID = errors.New("invalid id format")

// ErrNoImage is returned by Image when the item has no photo.
var ErrNoImage = errors.New("item has no image")

// DefaultUpdater is recorded when a mutation has no authenticated user.
const DefaultUpdater = "Admin"

// Notifier receives change events after successful mutations.
type Notifier interface {
	Notify(ctx context.Context, ev model.ChangeEvent) error
}

// NotifyTimeout bounds a single delivery to one notifier.
const NotifyTimeout = 10 * time.Second

// notifyQueueSize is the number of events a background notifier may lag behind.
const notifyQueueSize = 64

// ItemUpdate is one entry of a bulk update.
type ItemUpdate struct {
	ID    string
	Patch model.ItemPatch
}

// Service applies menu operations to a store.
type Service struct {
	store      store.Store
	notifiers  []Notifier
	background []*backgroundNotifier
	validate   *validator.Validate

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// NewService creates a service over st. Notifiers may be added later with AddNotifier.
func NewService(st store.Store, notifiers ...Notifier) *Service {
	return &Service{
		store:     st,
		notifiers: notifiers,
		validate:  newValidator(),
		Now:       time.Now,
	}
}

// AddNotifier registers another change sink that is called inline after each
// mutation. It must return quickly. Not safe to call while serving.
func (s *Service) AddNotifier(n Notifier) {
	s.notifiers = append(s.notifiers, n)
}

// AddBackgroundNotifier registers a change sink that talks to an external
// system. Events are queued and delivered by a separate goroutine, so a slow
// sink never holds up a request. Not safe to call while serving.
func (s *Service) AddBackgroundNotifier(n Notifier) {
	b := &backgroundNotifier{
		notifier: n,
		queue:    make(chan model.ChangeEvent, notifyQueueSize),
		done:     make(chan struct{}),
	}
	go b.run()
	s.background = append(s.background, b)
}

// Close stops the background notifiers after they delivered the queued events.
// Call it once no more mutations can arrive.
func (s *Service) Close() {
	for _, b := range s.background {
		close(b.queue)
	}
	for _, b := range s.background {
		<-b.done
	}
	s.background = nil
}

// now returns the clock in UTC at millisecond precision, which every backend
// can store.
func (s *Service) now() time.Time {
	return s.Now().UTC().Truncate(time.Millisecond)
}

// List returns all items in creation order.
func (s *Service) List(ctx context.Context) ([]model.MenuItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	return items, nil
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id string) (*model.MenuItem, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	return item, nil
}

// Metadata returns the last-update record, or nil if the menu was never changed.
func (s *Service) Metadata(ctx context.Context) (*model.Metadata, error) {
	return s.store.GetMetadata(ctx)
}

// Snapshot returns the full ordered menu and its metadata.
func (s *Service) Snapshot(ctx context.Context) (model.Snapshot, error) {
	items, err := s.List(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	md, err := s.Metadata(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{Items: items, Metadata: md}, nil
}

// Create validates and inserts a new item.
func (s *Service) Create(ctx context.Context, by string, in NewItem) (*model.MenuItem, error) {
	normalizeNewItem(&in)
	if err := s.validateNewItem(in); err != nil {
		return nil, err
	}
	if err := checkPrice(in.Price, "price"); err != nil {
		return nil, err
	}

	now := s.now()
	item := model.MenuItem{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Price:       *in.Price,
		Category:    in.Category,
		Description: in.Description,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Available != nil {
		item.Available = *in.Available
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	md, err := s.touch(ctx, by)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, model.ChangeEvent{Type: model.EventCreated, ItemID: item.ID, ItemName: item.Name, UpdatedBy: md.UpdatedBy, At: md.Timestamp})
	return &item, nil
}

// Update applies a partial update to one item.
func (s *Service) Update(ctx context.Context, by, id string, patch model.ItemPatch) (*model.MenuItem, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	normalizePatch(&patch)
	if err := s.validatePatch(patch, ""); err != nil {
		return nil, err
	}
	if err := checkPrice(patch.Price, "price"); err != nil {
		return nil, err
	}

	var item *model.MenuItem
	var err error
	if patch.Empty() {
		// Nothing to write; the item stays as is and only metadata moves.
		item, err = s.store.GetItem(ctx, id)
		if err == nil && item == nil {
			err = store.ErrNotFound
		}
	} else {
		item, err = s.store.UpdateItem(ctx, id, patch, s.now())
	}
	if err != nil {
		return nil, err
	}

	md, err := s.touch(ctx, by)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, model.ChangeEvent{Type: model.EventUpdated, ItemID: item.ID, ItemName: item.Name, UpdatedBy: md.UpdatedBy, At: md.Timestamp})
	return item, nil
}

// BulkUpdate applies several partial updates. Every entry is validated and
// checked for existence before anything is written. It returns the number of
// updated items.
func (s *Service) BulkUpdate(ctx context.Context, by string, updates []ItemUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, &ValidationError{Field: "items", Message: "must not be empty"}
	}

	for i := range updates {
		u := &updates[i]
		prefix := fmt.Sprintf("items[%d].", i)
		if u.ID == "" {
			return 0, &ValidationError{Field: prefix + "id", Message: "is required"}
		}
		if err := checkID(u.ID); err != nil {
			return 0, err
		}
		normalizePatch(&u.Patch)
		if err := s.validatePatch(u.Patch, prefix); err != nil {
			return 0, err
		}
		if err := checkPrice(u.Patch.Price, prefix+"price"); err != nil {
			return 0, err
		}
	}

	for _, u := range updates {
		item, err := s.store.GetItem(ctx, u.ID)
		if err != nil {
			return 0, err
		}
		if item == nil {
			return 0, fmt.Errorf("item %s: %w", u.ID, store.ErrNotFound)
		}
	}

	now := s.now()
	for _, u := range updates {
		if u.Patch.Empty() {
			continue
		}
		if _, err := s.store.UpdateItem(ctx, u.ID, u.Patch, now); err != nil {
			return 0, fmt.Errorf("updating item %s: %w", u.ID, err)
		}
	}

	md, err := s.touch(ctx, by)
	if err != nil {
		return 0, err
	}
	s.notify(ctx, model.ChangeEvent{Type: model.EventBulkUpdated, Count: len(updates), UpdatedBy: md.UpdatedBy, At: md.Timestamp})
	return len(updates), nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, by, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return store.ErrNotFound
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}

	md, err := s.touch(ctx, by)
	if err != nil {
		return err
	}
	s.notify(ctx, model.ChangeEvent{Type: model.EventDeleted, ItemID: id, ItemName: item.Name, UpdatedBy: md.UpdatedBy, At: md.Timestamp})
	return nil
}

// SetImage stores an already processed photo for an item.
func (s *Service) SetImage(ctx context.Context, by, id string, data []byte, mime string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if len(data) == 0 {
		return &ValidationError{Field: "image", Message: "is required"}
	}
	if err := s.store.SetItemImage(ctx, id, data, mime, s.now()); err != nil {
		return err
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}

	md, err := s.touch(ctx, by)
	if err != nil {
		return err
	}
	ev := model.ChangeEvent{Type: model.EventImage, ItemID: id, UpdatedBy: md.UpdatedBy, At: md.Timestamp}
	if item != nil {
		ev.ItemName = item.Name
	}
	s.notify(ctx, ev)
	return nil
}

// Image returns the photo of an item.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	if err := checkID(id); err != nil {
		return nil, "", err
	}
	data, mime, err := s.store.GetItemImage(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNoImage
	}
	return data, mime, nil
}

// SeedDefaults inserts the default canteen menu when the store is empty and
// returns the number of inserted items.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.store.CountItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	base := s.now()
	for i, item := range DefaultItems() {
		item.ID = uuid.NewString()
		item.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		item.UpdatedAt = item.CreatedAt
		if err := s.store.CreateItem(ctx, item); err != nil {
			return i, fmt.Errorf("seeding %q: %w", item.Name, err)
		}
	}

	md, err := s.touch(ctx, model.SystemUser)
	if err != nil {
		return len(defaultItems), err
	}
	s.notify(ctx, model.ChangeEvent{Type: model.EventSeeded, Count: len(defaultItems), UpdatedBy: md.UpdatedBy, At: md.Timestamp})
	return len(defaultItems), nil
}

// touch overwrites the metadata record. The timestamp always moves forward,
// even when the clock did not.
func (s *Service) touch(ctx context.Context, by string) (model.Metadata, error) {
	if by == "" {
		by = DefaultUpdater
	}
	md := model.Metadata{Timestamp: s.now(), UpdatedBy: by}

	prev, err := s.store.GetMetadata(ctx)
	if err != nil {
		return md, fmt.Errorf("reading metadata: %w", err)
	}
	if prev != nil && !md.Timestamp.After(prev.Timestamp) {
		md.Timestamp = prev.Timestamp.Add(time.Millisecond)
	}

	if err := s.store.SetMetadata(ctx, md); err != nil {
		return md, fmt.Errorf("updating metadata: %w", err)
	}
	return md, nil
}

// notify fans ev out. Delivery does not depend on the request staying alive.
func (s *Service) notify(ctx context.Context, ev model.ChangeEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		deliver(ctx, n, ev)
	}
	for _, b := range s.background {
		select {
		case b.queue <- ev:
		default:
			slog.Warn("change notification dropped, queue full", "type", ev.Type, "item", ev.ItemID)
		}
	}
}

func deliver(ctx context.Context, n Notifier, ev model.ChangeEvent) {
	ctx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()
	if err := n.Notify(ctx, ev); err != nil {
		slog.Warn("change notification failed", "type", ev.Type, "item", ev.ItemID, "error", err)
	}
}

// backgroundNotifier delivers queued events to one notifier in order.
type backgroundNotifier struct {
	notifier Notifier
	queue    chan model.ChangeEvent
	done     chan struct{}
}

func (b *backgroundNotifier) run() {
	defer close(b.done)
	for ev := range b.queue {
		deliver(context.Background(), b.notifier, ev)
	}
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return ErrInvalidID
	}
	return nil
}

func checkPrice(p *float64, field string) error {
	if p != nil && (math.IsInf(*p, 0) || math.IsNaN(*p)) {
		return &ValidationError{Field: field, Message: "must be a finite number"}
	}
	return nil
}
