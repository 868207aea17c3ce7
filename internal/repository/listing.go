package repository

import (
	"context"
	"fmt"
	"time"

	"classifieds/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationUpdate is the set of moderation fields written back after a
// report recount. When Hide is false only the counters are written.
type ModerationUpdate struct {
	SpamReportCount  int
	FraudReportCount int
	Hide             bool
	IsSpam           bool
	IsFraud          bool
	// HiddenAt is written only when non-nil so a re-hide keeps the first timestamp.
	HiddenAt *time.Time
}

// StatusUpdate is a manual moderation change made by an admin.
type StatusUpdate struct {
	Status   models.ListingStatus
	IsActive bool
	// ClearModeration resets the spam/fraud hold so the listing can go live again.
	ClearModeration bool
}

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	GetWithMedia(ctx context.Context, id uint) (*models.Listing, error)
	Create(ctx context.Context, listing *models.Listing) error
	UpdateModeration(ctx context.Context, id uint, update ModerationUpdate) error
	UpdateStatus(ctx context.Context, id uint, update StatusUpdate) error
	CountOwnerMediaMatches(ctx context.Context, listingID uint, ownerID uuid.UUID, paths []string) (int64, error)
	ListIDs(ctx context.Context) ([]uint, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository returns a new ListingRepository implementation.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) GetWithMedia(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := readDB(r.db).WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("media.id ASC")
		}).
		First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) UpdateModeration(ctx context.Context, id uint, update ModerationUpdate) error {
	fields := map[string]interface{}{
		"spam_report_count":  update.SpamReportCount,
		"fraud_report_count": update.FraudReportCount,
	}
	if update.Hide {
		fields["is_spam"] = update.IsSpam
		fields["is_fraud"] = update.IsFraud
		fields["is_active"] = false
		fields["status"] = models.ListingStatusHidden
		if update.HiddenAt != nil {
			fields["auto_hidden_at"] = *update.HiddenAt
		}
	}

	result := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update listing %d moderation: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, update StatusUpdate) error {
	fields := map[string]interface{}{
		"status":    update.Status,
		"is_active": update.IsActive,
	}
	if update.ClearModeration {
		fields["is_spam"] = false
		fields["is_fraud"] = false
		fields["auto_hidden_at"] = nil
	}

	result := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update listing %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOwnerMediaMatches counts media rows on the owner's other listings whose
// stored path equals one of paths.
func (r *listingRepository) CountOwnerMediaMatches(ctx context.Context, listingID uint, ownerID uuid.UUID, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Media{}).
		Joins("JOIN listings ON listings.id = media.listing_id").
		Where("listings.user_id = ? AND listings.id <> ? AND media.file_path IN ?", ownerID, listingID, paths).
		Count(&count).Error
	return count, err
}

func (r *listingRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := readDB(r.db).WithContext(ctx).Model(&models.Listing{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
