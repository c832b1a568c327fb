// Package errors provides the failure taxonomy for the gallery module.
// Every engine call returns either a page or a *GalleryError whose Kind lets
// the presentation layer pick differentiated copy.
package errors

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a page request did not succeed
type FailureKind string

const (
	// KindInvalidPage indicates a negative page index
	KindInvalidPage FailureKind = "invalid_page"
	// KindInvalidPageSize indicates a non-positive page size
	KindInvalidPageSize FailureKind = "invalid_page_size"
	// KindPermissionDenied indicates the grant level forbids querying
	KindPermissionDenied FailureKind = "permission_denied"
	// KindNoMediaFound indicates page 0 came back empty
	KindNoMediaFound FailureKind = "no_media_found"
	// KindStoreAccessFailure wraps a lower-level store fault
	KindStoreAccessFailure FailureKind = "store_access_failure"
	// KindNotInitialized indicates the library is not ready to query yet
	KindNotInitialized FailureKind = "not_initialized"
)

// Sentinel errors, one per kind, for errors.Is comparisons
var (
	ErrInvalidPage        = errors.New("invalid page number")
	ErrInvalidPageSize    = errors.New("page size must be positive")
	ErrPermissionDenied   = errors.New("permission to access media storage is denied")
	ErrNoMediaFound       = errors.New("no media items found")
	ErrStoreAccessFailure = errors.New("failed to access media")
	ErrNotInitialized     = errors.New("media library not initialized")
)

var sentinels = map[FailureKind]error{
	KindInvalidPage:        ErrInvalidPage,
	KindInvalidPageSize:    ErrInvalidPageSize,
	KindPermissionDenied:   ErrPermissionDenied,
	KindNoMediaFound:       ErrNoMediaFound,
	KindStoreAccessFailure: ErrStoreAccessFailure,
	KindNotInitialized:     ErrNotInitialized,
}

// Kinds returns the closed set of failure kinds
func Kinds() []FailureKind {
	return []FailureKind{
		KindInvalidPage,
		KindInvalidPageSize,
		KindPermissionDenied,
		KindNoMediaFound,
		KindStoreAccessFailure,
		KindNotInitialized,
	}
}

// GalleryError provides structured failure information with context
type GalleryError struct {
	Kind     FailureKind // Failure classification
	Op       string      // Operation that failed (e.g. "load_page")
	Page     int         // Requested page index
	PageSize int         // Requested page size
	Store    string      // Store involved, if any
	Err      error       // Underlying cause
}

// Error implements the error interface
func (e *GalleryError) Error() string {
	msg := e.Kind.String()
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}

	switch e.Kind {
	case KindInvalidPage:
		msg = fmt.Sprintf("%s: %d", msg, e.Page)
	case KindInvalidPageSize:
		msg = fmt.Sprintf("%s: %d", msg, e.PageSize)
	}

	if e.Store != "" {
		msg = fmt.Sprintf("%s [store=%s]", msg, e.Store)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s in %s: %v", msg, e.Op, e.Err)
	}
	return fmt.Sprintf("%s in %s", msg, e.Op)
}

// Unwrap returns the underlying cause
func (e *GalleryError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for this error's kind
func (e *GalleryError) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

// New creates a GalleryError
func New(kind FailureKind, op string, err error) *GalleryError {
	return &GalleryError{Kind: kind, Op: op, Err: err}
}

// WithPage adds the requested page coordinates
func (e *GalleryError) WithPage(page, pageSize int) *GalleryError {
	e.Page = page
	e.PageSize = pageSize
	return e
}

// WithStore records which store failed
func (e *GalleryError) WithStore(store string) *GalleryError {
	e.Store = store
	return e
}

// IsRecoverable reports whether re-invoking the request might succeed
// without a code change
func (e *GalleryError) IsRecoverable() bool {
	switch e.Kind {
	case KindPermissionDenied, KindStoreAccessFailure, KindNotInitialized:
		return true
	default:
		return false
	}
}

// String returns the wire name of the kind
func (k FailureKind) String() string {
	return string(k)
}

// Error creation helpers

// InvalidPage creates an InvalidPage failure
func InvalidPage(op string, page, pageSize int) *GalleryError {
	return New(KindInvalidPage, op, nil).WithPage(page, pageSize)
}

// InvalidPageSize creates an InvalidPageSize failure
func InvalidPageSize(op string, page, pageSize int) *GalleryError {
	return New(KindInvalidPageSize, op, nil).WithPage(page, pageSize)
}

// PermissionDenied creates a PermissionDenied failure
func PermissionDenied(op string) *GalleryError {
	return New(KindPermissionDenied, op, nil)
}

// NoMediaFound creates a NoMediaFound failure
func NoMediaFound(op string) *GalleryError {
	return New(KindNoMediaFound, op, nil)
}

// StoreAccessFailure wraps a store fault, preserving the cause
func StoreAccessFailure(op string, cause error) *GalleryError {
	return New(KindStoreAccessFailure, op, cause)
}

// NotInitialized creates a NotInitialized failure
func NotInitialized(op string, cause error) *GalleryError {
	return New(KindNotInitialized, op, cause)
}

// KindOf extracts the failure kind from an error.
// It returns "" for nil and for errors outside the taxonomy.
func KindOf(err error) FailureKind {
	var gErr *GalleryError
	if errors.As(err, &gErr) {
		return gErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}

// Cause returns the lower-level fault behind a failure, if any
func Cause(err error) error {
	var gErr *GalleryError
	if errors.As(err, &gErr) {
		return gErr.Err
	}
	return nil
}

// UserMessage returns end-user copy for a failure kind.
// Store faults get the generic message.
func UserMessage(kind FailureKind) string {
	switch kind {
	case KindPermissionDenied:
		return "Allow access to your photos and videos to see them here."
	case KindNoMediaFound:
		return "No photos or videos yet."
	case KindNotInitialized:
		return "Your library is still getting ready. Try again in a moment."
	default:
		return "Something went wrong while loading your media."
	}
}
