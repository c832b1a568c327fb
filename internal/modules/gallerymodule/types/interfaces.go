// Package types - Internal interfaces
package types

import (
	"context"
	"errors"
)

// ErrStoreNotReady is returned by a store whose index has not been built yet
var ErrStoreNotReady = errors.New("media store not ready")

// Cursor iterates store rows newest first. Callers must always Close it.
type Cursor interface {
	// Next advances to the next row, returning false when exhausted or on error
	Next() bool
	// Row decodes the current row. An error here is a row-level fault and
	// the row is skipped.
	Row() (RawRow, error)
	// Err returns the iteration error, if any
	Err() error
	Close() error
}

// MediaStoreAccess is one backing store (images or videos)
type MediaStoreAccess interface {
	// Kind returns the kind of every row in this store
	Kind() MediaKind

	// QueryPage opens a cursor sorted by insertion time descending,
	// positioned at raw row offset. The cursor is open ended; the caller
	// stops reading when it has collected enough valid rows.
	QueryPage(ctx context.Context, offset int) (Cursor, error)

	// CountAll returns the number of raw rows in the store
	CountAll(ctx context.Context) (int, error)
}

// AccessGate resolves the current grant level
type AccessGate interface {
	CheckAccess() AccessLevel
	RequestAccess(ctx context.Context) (AccessLevel, error)
}

// Prober checks whether a locator can currently be opened for reading
type Prober interface {
	Probe(ctx context.Context, locator string) error
}

// PageLoader loads one page; implemented by the query engine
type PageLoader interface {
	LoadPage(ctx context.Context, page, pageSize int) (*Page, error)
}
