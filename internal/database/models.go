package database

import (
	"time"
)

// Table names for the two media stores
const (
	ImageTable = "images"
	VideoTable = "videos"
)

// MediaRow is one indexed file. Images and videos share the layout but live in
// separate tables, each with its own insertion timeline.
type MediaRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Path        string    `gorm:"uniqueIndex;not null" json:"path"`
	DisplayName *string   `json:"display_name"`
	MimeType    *string   `json:"mime_type"`
	Size        int64     `json:"size"`
	AddedAt     int64     `gorm:"index;not null" json:"added_at"` // unix seconds
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ImageRow is a row of the image store
type ImageRow struct {
	MediaRow
}

// TableName implements gorm's Tabler
func (ImageRow) TableName() string { return ImageTable }

// VideoRow is a row of the video store
type VideoRow struct {
	MediaRow
}

// TableName implements gorm's Tabler
func (VideoRow) TableName() string { return VideoTable }

// Models returns every model managed by AutoMigrate
func Models() []interface{} {
	return []interface{}{&ImageRow{}, &VideoRow{}}
}
