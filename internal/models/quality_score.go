package models

import "time"

// QualityScore is the one-per-listing heuristic rating. It is overwritten on
// every recalculation; no history is kept.
type QualityScore struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ListingID         uint       `gorm:"not null;uniqueIndex" json:"listing_id"`
	TitleScore        int        `gorm:"not null;default:0" json:"title_score"`
	ImageScore        int        `gorm:"not null;default:0" json:"image_score"`
	DescriptionScore  int        `gorm:"not null;default:0" json:"description_score"`
	CompletenessScore int        `gorm:"not null;default:0" json:"completeness_score"`
	OverallScore      int        `gorm:"not null;default:0;index" json:"overall_score"`
	CalculatedAt      time.Time  `json:"calculated_at"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
}
