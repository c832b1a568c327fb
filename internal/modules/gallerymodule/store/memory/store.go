// Package memory provides an in-process media store.
// It keeps rows in a slice and hands out snapshot cursors, which makes it
// suitable for tests and for hosts that already hold their library in memory.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// ErrCorruptRow is returned by Row for items marked Corrupt
var ErrCorruptRow = errors.New("row has missing columns")

// Item is one stored row
type Item struct {
	ID          string
	Locator     string
	AddedAt     int64
	DisplayName *string
	MimeType    *string
	// Corrupt makes the row fail to decode
	Corrupt bool
}

// Store is an in-memory MediaStoreAccess
type Store struct {
	kind types.MediaKind

	mu       sync.RWMutex
	items    []Item
	queryErr error
	iterErr  error
	iterAt   int
	onRow    func(pos int)
	opened   int
	closed   int
}

// NewStore creates an empty store holding rows of kind
func NewStore(kind types.MediaKind) *Store {
	return &Store{kind: kind}
}

// Kind returns the store's media kind
func (s *Store) Kind() types.MediaKind {
	return s.kind
}

// Add appends rows
func (s *Store) Add(items ...Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// FailQuery makes every QueryPage and CountAll call fail with err
func (s *Store) FailQuery(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// FailIteration makes cursors stop with err after yielding afterRows rows
func (s *Store) FailIteration(afterRows int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterAt = afterRows
	s.iterErr = err
}

// OnRow registers a hook called each time a cursor advances
func (s *Store) OnRow(fn func(pos int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRow = fn
}

// OpenCursors returns how many cursors have been opened but not closed
func (s *Store) OpenCursors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened - s.closed
}

// Queries returns how many cursors have been opened in total
func (s *Store) Queries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened
}

// QueryPage opens a snapshot cursor, newest first, positioned at offset
func (s *Store) QueryPage(ctx context.Context, offset int) (types.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryErr != nil {
		return nil, s.queryErr
	}

	snapshot := make([]Item, len(s.items))
	copy(snapshot, s.items)
	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].AddedAt != snapshot[j].AddedAt {
			return snapshot[i].AddedAt > snapshot[j].AddedAt
		}
		return snapshot[i].ID > snapshot[j].ID
	})

	if offset > len(snapshot) {
		offset = len(snapshot)
	}

	s.opened++
	return &cursor{
		store:   s,
		rows:    snapshot[offset:],
		pos:     -1,
		iterErr: s.iterErr,
		iterAt:  s.iterAt,
		onRow:   s.onRow,
	}, nil
}

// CountAll returns the number of stored rows
func (s *Store) CountAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.queryErr != nil {
		return 0, s.queryErr
	}
	return len(s.items), nil
}

type cursor struct {
	store   *Store
	rows    []Item
	pos     int
	err     error
	iterErr error
	iterAt  int
	onRow   func(pos int)
	closed  bool
}

func (c *cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if c.iterErr != nil && c.pos+1 >= c.iterAt {
		c.err = c.iterErr
		return false
	}
	c.pos++
	if c.pos >= len(c.rows) {
		return false
	}
	if c.onRow != nil {
		c.onRow(c.pos)
	}
	return true
}

func (c *cursor) Row() (types.RawRow, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return types.RawRow{}, errors.New("cursor not positioned on a row")
	}
	item := c.rows[c.pos]
	if item.Corrupt {
		return types.RawRow{}, ErrCorruptRow
	}
	return types.RawRow{
		ID:          item.ID,
		Locator:     item.Locator,
		AddedAt:     item.AddedAt,
		DisplayName: item.DisplayName,
		MimeType:    item.MimeType,
	}, nil
}

func (c *cursor) Err() error {
	return c.err
}

func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.store.mu.Lock()
	c.store.closed++
	c.store.mu.Unlock()
	return nil
}

// String returns a pointer to s, for building nullable columns
func String(s string) *string {
	return &s
}
