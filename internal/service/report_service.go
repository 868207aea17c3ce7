package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classifieds/internal/models"
	"classifieds/internal/observability"
	"classifieds/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxReportReasonLength = 500

// SubmitReportInput is a user's complaint about a listing.
type SubmitReportInput struct {
	ListingID  uint      `json:"listing_id" validate:"required,gt=0"`
	ReporterID uuid.UUID `json:"-" validate:"required"`
	Reason     string    `json:"reason" validate:"required,max=500"`
}

// Validate checks the input after trimming the reason.
func (in *SubmitReportInput) Validate() error {
	in.Reason = strings.TrimSpace(in.Reason)

	v := validator.New()
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError("Invalid report")
	}
	switch fe := verrs[0]; fe.Field() {
	case "ListingID":
		return models.NewValidationError("listing_id must be a positive integer")
	case "ReporterID":
		return models.NewValidationError("A reporter is required")
	default:
		if fe.Tag() == "max" {
			return models.NewValidationError(fmt.Sprintf("reason must be at most %d characters", maxReportReasonLength))
		}
		return models.NewValidationError("reason is required")
	}
}

// ReportSubmission is the stored report and the moderation check it triggered.
type ReportSubmission struct {
	Report       *models.Report     `json:"report"`
	Moderation   *ModerationOutcome `json:"moderation"`
	ReporterName string             `json:"reporter_name"`
	ListingTitle string             `json:"listing_title"`
}

// ReportService files user reports and runs the moderator after each one.
type ReportService struct {
	reports   repository.ReportRepository
	listings  repository.ListingRepository
	users     repository.UserRepository
	moderator *SpamService
}

// NewReportService returns a ReportService.
func NewReportService(
	reports repository.ReportRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	moderator *SpamService,
) *ReportService {
	return &ReportService{
		reports:   reports,
		listings:  listings,
		users:     users,
		moderator: moderator,
	}
}

// Submit validates and stores a pending report, then recounts the listing's
// reports. A moderation failure is returned together with the stored report.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput) (*ReportSubmission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("load listing %d: %w", in.ListingID, err)
	}

	reporter, err := s.users.GetByID(ctx, in.ReporterID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load reporter: %w", err)
	}
	if reporter.IsBanned {
		return nil, models.NewForbiddenError("Banned accounts cannot file reports")
	}

	report := &models.Report{
		ListingID: in.ListingID,
		UserID:    in.ReporterID,
		Reason:    in.Reason,
		Status:    models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	observability.ReportsSubmitted.Inc()

	submission := &ReportSubmission{
		Report:       report,
		ReporterName: reporter.Name,
		ListingTitle: listing.Title,
	}
	outcome, err := s.moderator.CheckAndHandleSpamReports(ctx, in.ListingID)
	if err != nil {
		return submission, fmt.Errorf("moderate listing %d: %w", in.ListingID, err)
	}
	submission.Moderation = outcome
	return submission, nil
}
