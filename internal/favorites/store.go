package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

var (
	ErrNotFound    = errors.New("favorite not found")
	ErrInvalidItem = errors.New("invalid favorite")
)

// Item is a saved title. ContentType is stored explicitly rather than
// inferred from the record's shape.
type Item struct {
	ID          int                    `json:"id"`
	ContentType tmdb.MediaType         `json:"contentType"`
	FavoritedAt time.Time              `json:"favoritedAt"`
	Record      metadata.ContentDetail `json:"record"`
}

func (i Item) validate() error {
	if i.ID <= 0 || !i.ContentType.Valid() {
		return fmt.Errorf("%w: %s/%d", ErrInvalidItem, i.ContentType, i.ID)
	}
	return nil
}

// Store persists favorites in insertion order.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a favorites store on a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// List returns every favorite, oldest first.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT content_type, tmdb_id, payload, favorited_at FROM favorites ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get returns one favorite.
func (s *Store) Get(ctx context.Context, contentType tmdb.MediaType, id int) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT content_type, tmdb_id, payload, favorited_at FROM favorites WHERE content_type = ? AND tmdb_id = ?",
		string(contentType), id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// IsFavorite reports whether the title is saved.
func (s *Store) IsFavorite(ctx context.Context, contentType tmdb.MediaType, id int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE content_type = ? AND tmdb_id = ?",
		string(contentType), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return n > 0, nil
}

// Add appends a favorite. It reports false without changing anything when
// the title is already saved.
func (s *Store) Add(ctx context.Context, item Item) (bool, error) {
	if err := item.validate(); err != nil {
		return false, err
	}
	return s.insert(ctx, s.db, item)
}

// Remove deletes a favorite and reports whether it existed.
func (s *Store) Remove(ctx context.Context, contentType tmdb.MediaType, id int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE content_type = ? AND tmdb_id = ?", string(contentType), id)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Toggle removes the title if saved and adds item otherwise. It returns
// whether the title is a favorite afterwards.
func (s *Store) Toggle(ctx context.Context, item Item) (bool, error) {
	if err := item.validate(); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM favorites WHERE content_type = ? AND tmdb_id = ?", string(item.ContentType), item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	favorite := removed == 0
	if favorite {
		if _, err := s.insert(ctx, tx, item); err != nil {
			return false, err
		}
	}
	return favorite, tx.Commit()
}

// ReplaceAll swaps the whole list for items, keeping their order. Later
// duplicates of the same title are skipped.
func (s *Store) ReplaceAll(ctx context.Context, items []Item) (int, error) {
	for _, item := range items {
		if err := item.validate(); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM favorites"); err != nil {
		return 0, fmt.Errorf("failed to clear favorites: %w", err)
	}

	count := 0
	for _, item := range items {
		added, err := s.insert(ctx, tx, item)
		if err != nil {
			return 0, err
		}
		if added {
			count++
		}
	}
	return count, tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, db execer, item Item) (bool, error) {
	if item.FavoritedAt.IsZero() {
		item.FavoritedAt = s.now()
	}
	payload, err := json.Marshal(item.Record)
	if err != nil {
		return false, fmt.Errorf("failed to encode favorite: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO favorites (content_type, tmdb_id, payload, favorited_at, position)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM favorites))
		ON CONFLICT (content_type, tmdb_id) DO NOTHING`,
		string(item.ContentType), item.ID, string(payload), item.FavoritedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		item        Item
		contentType string
		payload     string
		favoritedAt string
	)
	if err := row.Scan(&contentType, &item.ID, &payload, &favoritedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan favorite: %w", err)
	}

	item.ContentType = tmdb.MediaType(contentType)
	if err := json.Unmarshal([]byte(payload), &item.Record); err != nil {
		return item, fmt.Errorf("failed to decode favorite %s/%d: %w", contentType, item.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, favoritedAt)
	if err != nil {
		return item, fmt.Errorf("failed to parse favorite date %q: %w", favoritedAt, err)
	}
	item.FavoritedAt = t
	return item, nil
}
