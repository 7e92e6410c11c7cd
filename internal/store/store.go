// Package store persists menu items and the menu metadata record.
//
// Backends are interchangeable: SQLite (default), PostgreSQL, MongoDB and a
// local JSON file.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/erazemk/menza/internal/model"
)

// ErrNotFound is returned by mutations that target a missing item.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract shared by all backends.
//
// Getters return (nil, nil) when the record does not exist. Mutations of a
// missing item return ErrNotFound.
type Store interface {
	// ListItems returns all items ordered by creation time.
	ListItems(ctx context.Context) ([]model.MenuItem, error)
	GetItem(ctx context.Context, id string) (*model.MenuItem, error)
	CountItems(ctx context.Context) (int, error)
	CreateItem(ctx context.Context, item model.MenuItem) error
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch, updatedAt time.Time) (*model.MenuItem, error)
	DeleteItem(ctx context.Context, id string) error

	SetItemImage(ctx context.Context, id string, data []byte, mime string, updatedAt time.Time) error
	// GetItemImage returns nil data when the item exists but has no image.
	GetItemImage(ctx context.Context, id string) ([]byte, string, error)

	GetMetadata(ctx context.Context) (*model.Metadata, error)
	SetMetadata(ctx context.Context, md model.Metadata) error

	Close() error
}

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendLocal    = "local"
)

// metadataKey identifies the singleton metadata record.
const metadataKey = "lastUpdated"
