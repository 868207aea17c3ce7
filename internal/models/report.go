package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a user complaint against a listing. The reason is free text;
// the moderator only looks for "spam" and "fraud" substrings in it.
type Report struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uint         `gorm:"not null;index" json:"listing_id"`
	Listing   *Listing     `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reason    string       `gorm:"type:text;not null" json:"reason"`
	Status    ReportStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// BeforeCreate assigns a random id when the caller did not set one.
func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
