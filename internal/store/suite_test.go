package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/menza/internal/model"
)

var suiteBase = time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC)

func newSuiteItem(name, category string, price float64, offset time.Duration) model.MenuItem {
	at := suiteBase.Add(offset)
	return model.MenuItem{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		Category:  category,
		Available: true,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// runStoreSuite exercises the Store contract against a fresh backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item := newSuiteItem("Masala Dosa", "breakfast", 90, 0)
		item.Description = "Crispy dosa with spiced potato filling"
		if err := s.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}

		got, err := s.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if got == nil {
			t.Fatal("expected item, got nil")
		}
		if got.Name != item.Name || got.Price != item.Price || got.Category != item.Category ||
			got.Description != item.Description || !got.Available {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, item)
		}
		if !got.CreatedAt.Equal(item.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", item.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetItem(context.Background(), uuid.NewString())
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing item, got %+v", got)
		}
	})

	t.Run("ListOrderedByCreation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// Inserted out of order on purpose.
		third := newSuiteItem("Sprite", "soft-drinks", 20, 2*time.Second)
		first := newSuiteItem("Veg Puff", "bakery", 25, 0)
		second := newSuiteItem("Choco Bar", "ice-cream", 25, time.Second)
		for _, it := range []model.MenuItem{third, first, second} {
			if err := s.CreateItem(ctx, it); err != nil {
				t.Fatalf("CreateItem: %v", err)
			}
		}

		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		want := []string{first.ID, second.ID, third.ID}
		for i, it := range items {
			if it.ID != want[i] {
				t.Errorf("position %d: expected %s, got %s (%s)", i, want[i], it.ID, it.Name)
			}
		}

		n, err := s.CountItems(ctx)
		if err != nil {
			t.Fatalf("CountItems: %v", err)
		}
		if n != 3 {
			t.Errorf("expected count 3, got %d", n)
		}
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item := newSuiteItem("Filter Coffee", "beverages", 30, 0)
		item.Description = "Traditional South Indian filter coffee"
		s.CreateItem(ctx, item)

		price := 35.5
		available := false
		later := suiteBase.Add(time.Minute)
		got, err := s.UpdateItem(ctx, item.ID, model.ItemPatch{Price: &price, Available: &available}, later)
		if err != nil {
			t.Fatalf("UpdateItem: %v", err)
		}
		if got.Price != 35.5 || got.Available {
			t.Errorf("patch not applied: %+v", got)
		}
		if got.Name != item.Name || got.Description != item.Description || got.Category != item.Category {
			t.Errorf("untouched fields changed: %+v", got)
		}
		if !got.UpdatedAt.Equal(later) {
			t.Errorf("expected updated_at %v, got %v", later, got.UpdatedAt)
		}

		empty := ""
		got, err = s.UpdateItem(ctx, item.ID, model.ItemPatch{Description: &empty}, later)
		if err != nil {
			t.Fatalf("UpdateItem clearing description: %v", err)
		}
		if got.Description != "" {
			t.Errorf("expected empty description, got %q", got.Description)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		name := "Ghost"
		_, err := s.UpdateItem(context.Background(), uuid.NewString(), model.ItemPatch{Name: &name}, suiteBase)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item := newSuiteItem("Red Bull", "soft-drinks", 120, 0)
		s.CreateItem(ctx, item)

		if err := s.DeleteItem(ctx, item.ID); err != nil {
			t.Fatalf("DeleteItem: %v", err)
		}
		items, _ := s.ListItems(ctx)
		if len(items) != 0 {
			t.Errorf("expected 0 items after delete, got %d", len(items))
		}
		if err := s.DeleteItem(ctx, item.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Image", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item := newSuiteItem("Cream Bun", "bakery", 20, 0)
		s.CreateItem(ctx, item)

		data, _, err := s.GetItemImage(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItemImage before upload: %v", err)
		}
		if data != nil {
			t.Error("expected no image before upload")
		}

		if err := s.SetItemImage(ctx, item.ID, []byte("fake image data"), "image/jpeg", suiteBase); err != nil {
			t.Fatalf("SetItemImage: %v", err)
		}
		data, mime, err := s.GetItemImage(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItemImage: %v", err)
		}
		if string(data) != "fake image data" || mime != "image/jpeg" {
			t.Errorf("unexpected image %q (%s)", data, mime)
		}

		got, _ := s.GetItem(ctx, item.ID)
		if got == nil || !got.HasImage {
			t.Errorf("expected item to report an image: %+v", got)
		}

		if _, _, err := s.GetItemImage(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing item image, got %v", err)
		}
		if err := s.SetItemImage(ctx, uuid.NewString(), []byte("x"), "image/jpeg", suiteBase); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound setting image of missing item, got %v", err)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		md, err := s.GetMetadata(ctx)
		if err != nil {
			t.Fatalf("GetMetadata: %v", err)
		}
		if md != nil {
			t.Errorf("expected nil metadata on empty store, got %+v", md)
		}

		if err := s.SetMetadata(ctx, model.Metadata{Timestamp: suiteBase, UpdatedBy: model.SystemUser}); err != nil {
			t.Fatalf("SetMetadata: %v", err)
		}
		later := suiteBase.Add(time.Hour)
		if err := s.SetMetadata(ctx, model.Metadata{Timestamp: later, UpdatedBy: "Admin"}); err != nil {
			t.Fatalf("SetMetadata overwrite: %v", err)
		}

		md, err = s.GetMetadata(ctx)
		if err != nil {
			t.Fatalf("GetMetadata: %v", err)
		}
		if md == nil || md.UpdatedBy != "Admin" || !md.Timestamp.Equal(later) {
			t.Errorf("unexpected metadata %+v", md)
		}
	})
}
