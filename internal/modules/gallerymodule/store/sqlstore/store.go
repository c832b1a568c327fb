// Package sqlstore serves the image and video stores from the gorm-backed
// index built by Indexer.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

const (
	selectColumns = "id, path, added_at, display_name, mime_type"
	recencyOrder  = "added_at DESC, id DESC"
)

// Store reads one media table
type Store struct {
	db    *gorm.DB
	kind  types.MediaKind
	table string
}

// NewStore creates the store for kind
func NewStore(db *gorm.DB, kind types.MediaKind) *Store {
	table := database.ImageTable
	if kind == types.MediaKindVideo {
		table = database.VideoTable
	}
	return &Store{db: db, kind: kind, table: table}
}

// NewStores returns the image and video stores over db
func NewStores(db *gorm.DB) (*Store, *Store) {
	return NewStore(db, types.MediaKindImage), NewStore(db, types.MediaKindVideo)
}

// Kind returns the store's media kind
func (s *Store) Kind() types.MediaKind {
	return s.kind
}

// Table returns the backing table name
func (s *Store) Table() string {
	return s.table
}

// QueryPage opens a cursor over the table, newest first, starting at offset
func (s *Store) QueryPage(ctx context.Context, offset int) (types.Cursor, error) {
	rows, err := s.db.WithContext(ctx).
		Table(s.table).
		Select(selectColumns).
		Order(recencyOrder).
		Offset(offset).
		Rows()
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	return &cursor{db: s.db, rows: rows}, nil
}

// CountAll returns the number of rows in the table
func (s *Store) CountAll(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Table(s.table).Count(&n).Error; err != nil {
		return 0, s.classify(ctx, err)
	}
	return int(n), nil
}

// classify reports a missing table as ErrStoreNotReady
func (s *Store) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if !s.db.WithContext(ctx).Migrator().HasTable(s.table) {
		return fmt.Errorf("table %s: %w", s.table, types.ErrStoreNotReady)
	}
	return err
}

type scanRow struct {
	ID          string
	Path        string
	AddedAt     int64
	DisplayName *string
	MimeType    *string
}

type cursor struct {
	db     *gorm.DB
	rows   *sql.Rows
	closed bool
}

func (c *cursor) Next() bool {
	if c.closed {
		return false
	}
	return c.rows.Next()
}

func (c *cursor) Row() (types.RawRow, error) {
	var r scanRow
	if err := c.db.ScanRows(c.rows, &r); err != nil {
		return types.RawRow{}, err
	}
	return types.RawRow{
		ID:          r.ID,
		Locator:     r.Path,
		AddedAt:     r.AddedAt,
		DisplayName: r.DisplayName,
		MimeType:    r.MimeType,
	}, nil
}

func (c *cursor) Err() error {
	return c.rows.Err()
}

func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
