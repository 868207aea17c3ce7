package models

import "time"

// Media is an image or video attached to a listing. Only the count and the
// stored path matter to moderation; the bytes live in external storage.
type Media struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ListingID  uint      `gorm:"not null;index" json:"listing_id"`
	FileName   string    `gorm:"size:255" json:"file_name"`
	FilePath   string    `gorm:"size:512;index" json:"file_path"`
	MediaType  string    `gorm:"size:100" json:"media_type"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// TableName keeps the table name stable; "media" has no useful plural.
func (Media) TableName() string {
	return "media"
}
