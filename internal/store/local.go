package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/erazemk/menza/internal/model"
)

// Local keeps the whole menu in memory and mirrors it to a JSON file after
// every change. With an empty path nothing is written to disk.
type Local struct {
	mu   sync.Mutex
	path string
	data localData
}

type localData struct {
	Items    []localItem     `json:"items"`
	Metadata *model.Metadata `json:"metadata,omitempty"`
}

type localItem struct {
	model.MenuItem
	Image     []byte `json:"image,omitempty"`
	ImageMime string `json:"imageMime,omitempty"`
}

// OpenLocal loads the menu from path. A missing file starts an empty menu.
func OpenLocal(path string) (*Local, error) {
	s := &Local{path: path}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading local store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decoding local store %s: %w", path, err)
	}
	return s, nil
}

// clone returns a copy of the data whose item slice can be changed freely.
func (s *Local) clone() localData {
	return localData{Items: slices.Clone(s.data.Items), Metadata: s.data.Metadata}
}

// commit writes next to disk and makes it the current state only when the
// write succeeded. The caller holds s.mu.
func (s *Local) commit(next localData) error {
	if err := s.save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// save writes data atomically.
func (s *Local) save(data localData) error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(&data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding local store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".menza-*.json")
	if err != nil {
		return fmt.Errorf("writing local store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing local store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing local store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing local store: %w", err)
	}
	return nil
}

func (s *Local) index(id string) int {
	for i := range s.data.Items {
		if s.data.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// ListItems returns all items ordered by creation time.
func (s *Local) ListItems(_ context.Context) ([]model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.MenuItem, 0, len(s.data.Items))
	for _, li := range s.data.Items {
		items = append(items, li.MenuItem)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// GetItem returns an item by ID.
func (s *Local) GetItem(_ context.Context, id string) (*model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, nil
	}
	item := s.data.Items[i].MenuItem
	return &item, nil
}

// CountItems returns the number of items.
func (s *Local) CountItems(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Items), nil
}

// CreateItem inserts a new item.
func (s *Local) CreateItem(_ context.Context, item model.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(item.ID) >= 0 {
		return fmt.Errorf("creating item: duplicate id %s", item.ID)
	}
	item.HasImage = false
	next := s.clone()
	next.Items = append(next.Items, localItem{MenuItem: item})
	return s.commit(next)
}

// UpdateItem applies a partial update and returns the updated item.
func (s *Local) UpdateItem(_ context.Context, id string, patch model.ItemPatch, updatedAt time.Time) (*model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	item := patch.Apply(s.data.Items[i].MenuItem)
	item.UpdatedAt = updatedAt
	next := s.clone()
	next.Items[i].MenuItem = item
	if err := s.commit(next); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item.
func (s *Local) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	next := s.clone()
	next.Items = slices.Delete(next.Items, i, i+1)
	return s.commit(next)
}

// SetItemImage sets an item's image data.
func (s *Local) SetItemImage(_ context.Context, id string, data []byte, mime string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	next := s.clone()
	next.Items[i].Image = data
	next.Items[i].ImageMime = mime
	next.Items[i].HasImage = len(data) > 0
	next.Items[i].UpdatedAt = updatedAt
	return s.commit(next)
}

// GetItemImage returns an item's image data and MIME type.
func (s *Local) GetItemImage(_ context.Context, id string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, "", ErrNotFound
	}
	return s.data.Items[i].Image, s.data.Items[i].ImageMime, nil
}

// GetMetadata returns the metadata record, or nil if the menu was never changed.
func (s *Local) GetMetadata(_ context.Context) (*model.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Metadata == nil {
		return nil, nil
	}
	md := *s.data.Metadata
	return &md, nil
}

// SetMetadata overwrites the metadata record.
func (s *Local) SetMetadata(_ context.Context, md model.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	next.Metadata = &md
	return s.commit(next)
}

// Close is a no-op; every change is already on disk.
func (s *Local) Close() error {
	return nil
}
