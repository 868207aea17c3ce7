package repository

import (
	"context"
	"time"

	"classifieds/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QualityScoreRepository defines persistence operations for quality scores.
type QualityScoreRepository interface {
	GetByListingID(ctx context.Context, listingID uint) (*models.QualityScore, error)
	Upsert(ctx context.Context, score *models.QualityScore) (*models.QualityScore, error)
}

type qualityScoreRepository struct {
	db *gorm.DB
}

// NewQualityScoreRepository returns a new QualityScoreRepository implementation.
func NewQualityScoreRepository(db *gorm.DB) QualityScoreRepository {
	return &qualityScoreRepository{db: db}
}

func (r *qualityScoreRepository) GetByListingID(ctx context.Context, listingID uint) (*models.QualityScore, error) {
	var score models.QualityScore
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&score).Error; err != nil {
		return nil, err
	}
	return &score, nil
}

// Upsert writes the one score row for score.ListingID. A new row gets
// CalculatedAt; an existing row keeps it and gets LastUpdated instead.
func (r *qualityScoreRepository) Upsert(ctx context.Context, score *models.QualityScore) (*models.QualityScore, error) {
	now := time.Now().UTC()
	row := &models.QualityScore{
		ListingID:         score.ListingID,
		TitleScore:        score.TitleScore,
		ImageScore:        score.ImageScore,
		DescriptionScore:  score.DescriptionScore,
		CompletenessScore: score.CompletenessScore,
		OverallScore:      score.OverallScore,
		CalculatedAt:      now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"title_score":        score.TitleScore,
			"image_score":        score.ImageScore,
			"description_score":  score.DescriptionScore,
			"completeness_score": score.CompletenessScore,
			"overall_score":      score.OverallScore,
			"last_updated":       now,
		}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}

	return r.GetByListingID(ctx, score.ListingID)
}
