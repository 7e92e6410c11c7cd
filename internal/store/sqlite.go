package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/menza/internal/model"
)

// SQLite stores the menu in a SQLite database opened with db.Open.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite wraps an open, migrated database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

const sqliteItemColumns = `id, name, price, category, description, available, image IS NOT NULL, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row rowScanner) (*model.MenuItem, error) {
	item := &model.MenuItem{}
	if err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Description,
		&item.Available, &item.HasImage, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items ordered by creation time.
func (s *SQLite) ListItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+sqliteItemColumns+` FROM menu_items ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem returns an item by ID.
func (s *SQLite) GetItem(ctx context.Context, id string) (*model.MenuItem, error) {
	item, err := scanSQLiteItem(s.DB.QueryRowContext(ctx,
		`SELECT `+sqliteItemColumns+` FROM menu_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// CountItems returns the number of items.
func (s *SQLite) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// CreateItem inserts a new item.
func (s *SQLite) CreateItem(ctx context.Context, item model.MenuItem) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO menu_items (id, name, price, category, description, available, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price, item.Category, item.Description, item.Available,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// UpdateItem applies a partial update and returns the updated item.
func (s *SQLite) UpdateItem(ctx context.Context, id string, patch model.ItemPatch, updatedAt time.Time) (*model.MenuItem, error) {
	result, err := s.DB.ExecContext(ctx,
		`UPDATE menu_items SET
		     name        = COALESCE(?, name),
		     price       = COALESCE(?, price),
		     category    = COALESCE(?, category),
		     description = COALESCE(?, description),
		     available   = COALESCE(?, available),
		     updated_at  = ?
		 WHERE id = ?`,
		patch.Name, patch.Price, patch.Category, patch.Description, patch.Available, updatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes an item.
func (s *SQLite) DeleteItem(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemImage sets an item's image data.
func (s *SQLite) SetItemImage(ctx context.Context, id string, data []byte, mime string, updatedAt time.Time) error {
	result, err := s.DB.ExecContext(ctx,
		`UPDATE menu_items SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		data, mime, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func (s *SQLite) GetItemImage(ctx context.Context, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT image, image_mime FROM menu_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// GetMetadata returns the metadata record, or nil if the menu was never changed.
func (s *SQLite) GetMetadata(ctx context.Context) (*model.Metadata, error) {
	md := &model.Metadata{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT updated_at, updated_by FROM metadata WHERE key = ?`, metadataKey,
	).Scan(&md.Timestamp, &md.UpdatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting metadata: %w", err)
	}
	return md, nil
}

// SetMetadata overwrites the metadata record.
func (s *SQLite) SetMetadata(ctx context.Context, md model.Metadata) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO metadata (key, updated_at, updated_by) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at, updated_by = excluded.updated_by`,
		metadataKey, md.Timestamp, md.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("setting metadata: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.DB.Close()
}
