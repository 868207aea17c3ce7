// Package models contains data structures for the marketplace domain models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus is the moderation status of a listing.
type ListingStatus string

const (
	ListingStatusPending     ListingStatus = "pending"
	ListingStatusApproved    ListingStatus = "approved"
	ListingStatusRejected    ListingStatus = "rejected"
	ListingStatusHidden      ListingStatus = "hidden"
	ListingStatusSold        ListingStatus = "sold"
	ListingStatusDeactivated ListingStatus = "deactivated"
	ListingStatusActive      ListingStatus = "active"
)

// Listing is a single marketplace ad.
//
// IsActive is false whenever IsSpam or IsFraud is set; the moderator writes
// all of these fields in one update.
type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:300;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"type:numeric(14,2);default:0" json:"price"`
	Category    string    `gorm:"size:120" json:"category"`
	Location    string    `gorm:"size:255" json:"location"`
	Contact     string    `gorm:"size:255" json:"contact"`
	Condition   string    `gorm:"size:60" json:"condition"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	IsActive         bool          `gorm:"not null;default:true" json:"is_active"`
	Status           ListingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsSpam           bool          `gorm:"not null;default:false" json:"is_spam"`
	IsFraud          bool          `gorm:"not null;default:false" json:"is_fraud"`
	SpamReportCount  int           `gorm:"not null;default:0" json:"spam_report_count"`
	FraudReportCount int           `gorm:"not null;default:0" json:"fraud_report_count"`
	AutoHiddenAt     *time.Time    `json:"auto_hidden_at,omitempty"`

	Media        []Media       `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"media,omitempty"`
	Reports      []Report      `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	QualityScore *QualityScore `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"quality_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsModerationHeld reports whether the listing was pulled by report thresholds.
func (l *Listing) IsModerationHeld() bool {
	return l.IsSpam || l.IsFraud
}
