package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classifieds/internal/models"
	"classifieds/internal/repository"

	"github.com/google/uuid"
)

// AdminModerationService holds the manual moderation actions. Reactivation
// is the only way a hidden listing goes live again.
type AdminModerationService struct {
	reports   repository.ReportRepository
	listings  repository.ListingRepository
	users     repository.UserRepository
	moderator *SpamService
}

// NewAdminModerationService returns an AdminModerationService.
func NewAdminModerationService(
	reports repository.ReportRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	moderator *SpamService,
) *AdminModerationService {
	return &AdminModerationService{
		reports:   reports,
		listings:  listings,
		users:     users,
		moderator: moderator,
	}
}

// ListReports returns reports newest first with listing and reporter loaded.
func (s *AdminModerationService) ListReports(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	if filter.Status != "" && filter.Status != models.ReportStatusPending && filter.Status != models.ReportStatusResolved {
		return nil, models.NewValidationError("status must be pending or resolved")
	}
	return s.reports.List(ctx, filter)
}

// ResolveReport marks a report as reviewed.
func (s *AdminModerationService) ResolveReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	if err := s.reports.UpdateStatus(ctx, id, models.ReportStatusResolved); err != nil {
		if isNotFound(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("resolve report %s: %w", id, err)
	}
	return s.reports.GetByID(ctx, id)
}

// DeleteReport removes a report and refreshes its listing's counters. The
// listing's visibility is left as it is.
func (s *AdminModerationService) DeleteReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}

	if err := s.reports.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("delete report %s: %w", id, err)
	}

	if _, err := s.moderator.Recount(ctx, report.ListingID); err != nil && !errors.Is(err, ErrListingNotFound) {
		slog.WarnContext(ctx, "failed to recount reports after delete",
			slog.Uint64("listing_id", uint64(report.ListingID)),
			slog.String("error", err.Error()),
		)
	}
	return report, nil
}

// DeactivateListing takes a listing offline without touching its
// spam/fraud flags.
func (s *AdminModerationService) DeactivateListing(ctx context.Context, id uint) (*models.Listing, error) {
	return s.setListingStatus(ctx, id, repository.StatusUpdate{
		Status:   models.ListingStatusDeactivated,
		IsActive: false,
	})
}

// ReactivateListing puts a listing back online and clears any automatic
// hold. A later report that crosses a threshold hides it again.
func (s *AdminModerationService) ReactivateListing(ctx context.Context, id uint) (*models.Listing, error) {
	return s.setListingStatus(ctx, id, repository.StatusUpdate{
		Status:          models.ListingStatusActive,
		IsActive:        true,
		ClearModeration: true,
	})
}

func (s *AdminModerationService) setListingStatus(ctx context.Context, id uint, update repository.StatusUpdate) (*models.Listing, error) {
	if err := s.listings.UpdateStatus(ctx, id, update); err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("update listing %d: %w", id, err)
	}

	slog.InfoContext(ctx, "listing status changed by admin",
		slog.Uint64("listing_id", uint64(id)),
		slog.String("status", string(update.Status)),
	)
	return s.listings.GetByID(ctx, id)
}

// SetUserBanned bans or unbans an account.
func (s *AdminModerationService) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) (*models.User, error) {
	if err := s.users.SetBanned(ctx, id, banned); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return s.users.GetByID(ctx, id)
}
