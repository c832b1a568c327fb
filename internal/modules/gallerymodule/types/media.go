// Package types provides type definitions for the gallery module
package types

import (
	"strings"
)

// MediaKind identifies which backing store a record came from
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MimePrefix returns the mime type family a record of this kind must carry
func (k MediaKind) MimePrefix() string {
	switch k {
	case MediaKindImage:
		return "image/"
	case MediaKindVideo:
		return "video/"
	default:
		return ""
	}
}

// Matches reports whether mimeType belongs to this kind
func (k MediaKind) Matches(mimeType string) bool {
	prefix := k.MimePrefix()
	if prefix == "" {
		return false
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return len(mimeType) > len(prefix) && strings.HasPrefix(mimeType, prefix)
}

// MediaRecord is the normalized unit returned to callers.
// Locator is an opaque handle the rendering layer uses to fetch bytes later;
// it is not guaranteed to be a stable URL.
type MediaRecord struct {
	ID          string    `json:"id"`
	Locator     string    `json:"locator"`
	Kind        MediaKind `json:"kind"`
	AddedAt     int64     `json:"added_at"` // unix seconds
	DisplayName string    `json:"display_name"`
	MimeType    string    `json:"mime_type"`
}

// RawRow is one row as read from a backing store cursor, before validation.
// Nullable columns are pointers.
type RawRow struct {
	ID          string
	Locator     string
	AddedAt     int64
	DisplayName *string
	MimeType    *string
}
