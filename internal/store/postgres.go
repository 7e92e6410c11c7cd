package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erazemk/menza/internal/model"
)

// postgresSchema creates the PostgreSQL tables. It is idempotent.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS menu_items (
    seq         BIGSERIAL,
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    price       DOUBLE PRECISION NOT NULL CHECK (price >= 0),
    category    TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    available   BOOLEAN NOT NULL DEFAULT TRUE,
    image       BYTEA,
    image_mime  TEXT,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_menu_items_created_at ON menu_items(created_at, seq);

CREATE TABLE IF NOT EXISTS metadata (
    key        TEXT PRIMARY KEY,
    updated_at TIMESTAMPTZ NOT NULL,
    updated_by TEXT NOT NULL
);
`

// Postgres stores the menu in PostgreSQL through a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, pings the server and ensures the schema.
func ConnectPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

const postgresItemColumns = `id, name, price, category, description, available, image IS NOT NULL, created_at, updated_at`

func scanPostgresItem(row pgx.Row) (*model.MenuItem, error) {
	item := &model.MenuItem{}
	if err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Description,
		&item.Available, &item.HasImage, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items ordered by creation time.
func (s *Postgres) ListItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+postgresItemColumns+` FROM menu_items ORDER BY created_at, seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		item, err := scanPostgresItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem returns an item by ID.
func (s *Postgres) GetItem(ctx context.Context, id string) (*model.MenuItem, error) {
	item, err := scanPostgresItem(s.Pool.QueryRow(ctx,
		`SELECT `+postgresItemColumns+` FROM menu_items WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// CountItems returns the number of items.
func (s *Postgres) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// CreateItem inserts a new item.
func (s *Postgres) CreateItem(ctx context.Context, item model.MenuItem) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO menu_items (id, name, price, category, description, available, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.Name, item.Price, item.Category, item.Description, item.Available,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// UpdateItem applies a partial update and returns the updated item.
func (s *Postgres) UpdateItem(ctx context.Context, id string, patch model.ItemPatch, updatedAt time.Time) (*model.MenuItem, error) {
	item, err := scanPostgresItem(s.Pool.QueryRow(ctx,
		`UPDATE menu_items SET
		     name        = COALESCE($1, name),
		     price       = COALESCE($2, price),
		     category    = COALESCE($3, category),
		     description = COALESCE($4, description),
		     available   = COALESCE($5, available),
		     updated_at  = $6
		 WHERE id = $7
		 RETURNING `+postgresItemColumns,
		patch.Name, patch.Price, patch.Category, patch.Description, patch.Available, updatedAt, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item.
func (s *Postgres) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemImage sets an item's image data.
func (s *Postgres) SetItemImage(ctx context.Context, id string, data []byte, mime string, updatedAt time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE menu_items SET image = $1, image_mime = $2, updated_at = $3 WHERE id = $4`,
		data, mime, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func (s *Postgres) GetItemImage(ctx context.Context, id string) ([]byte, string, error) {
	var image []byte
	var mime *string
	err := s.Pool.QueryRow(ctx,
		`SELECT image, image_mime FROM menu_items WHERE id = $1`, id,
	).Scan(&image, &mime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	if mime == nil {
		return image, "", nil
	}
	return image, *mime, nil
}

// GetMetadata returns the metadata record, or nil if the menu was never changed.
func (s *Postgres) GetMetadata(ctx context.Context) (*model.Metadata, error) {
	md := &model.Metadata{}
	err := s.Pool.QueryRow(ctx,
		`SELECT updated_at, updated_by FROM metadata WHERE key = $1`, metadataKey,
	).Scan(&md.Timestamp, &md.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting metadata: %w", err)
	}
	return md, nil
}

// SetMetadata overwrites the metadata record.
func (s *Postgres) SetMetadata(ctx context.Context, md model.Metadata) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO metadata (key, updated_at, updated_by) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by`,
		metadataKey, md.Timestamp, md.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("setting metadata: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Postgres) Close() error {
	s.Pool.Close()
	return nil
}
