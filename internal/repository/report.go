package repository

import (
	"context"
	"fmt"

	"classifieds/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportFilter narrows an admin report listing.
type ReportFilter struct {
	Status models.ReportStatus
	Limit  int
	Offset int
}

// ReportRepository defines persistence operations for reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ReasonsForListing(ctx context.Context, listingID uint) ([]string, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a new ReportRepository implementation.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ReasonsForListing returns the reason of every report filed against the
// listing, resolved or not. Reads go to the primary so a report created in
// the same request is counted.
func (r *reportRepository) ReasonsForListing(ctx context.Context, listingID uint) ([]string, error) {
	var reasons []string
	err := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Pluck("reason", &reasons).Error
	if err != nil {
		return nil, fmt.Errorf("load reports for listing %d: %w", listingID, err)
	}
	return reasons, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := readDB(r.db).WithContext(ctx).
		Preload("Listing").
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
