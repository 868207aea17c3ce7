package server

import (
	"errors"
	"log/slog"

	"classifieds/internal/featureflags"
	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/notifications"
	"classifieds/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitReport files a report against a listing and runs the moderator.
func (s *Server) SubmitReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		ListingID uint   `json:"listing_id"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	submission, err := s.reportService.Submit(ctx, service.SubmitReportInput{
		ListingID:  req.ListingID,
		ReporterID: userID,
		Reason:     req.Reason,
	})
	if submission == nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return respondServiceError(c, err, userID)
		}
		return respondServiceError(c, err, req.ListingID)
	}

	// The report is stored even when the recount failed; admins still see it.
	s.publishReportEvents(c, submission)
	if err != nil {
		return respondServiceError(c, err, req.ListingID)
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

func (s *Server) publishReportEvents(c *fiber.Ctx, submission *service.ReportSubmission) {
	ctx := c.UserContext()
	report := submission.Report

	payload := map[string]interface{}{
		"report": reportSummary(report, submission.ReporterName, submission.ListingTitle),
	}
	if submission.Moderation != nil {
		payload["moderation"] = submission.Moderation
	}
	if s.featureFlags.Enabled(featureflags.ReviewSignalsOnReport, currentUserID(c)) {
		signals, err := s.spamService.ReviewSignals(ctx, report.ListingID)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to compute review signals",
				slog.Uint64("listing_id", uint64(report.ListingID)),
				slog.String("error", err.Error()),
			)
		} else {
			payload["signals"] = signals
		}
	}
	s.publishAdminEvent(ctx, notifications.EventNewReportAdded, payload)

	if outcome := submission.Moderation; outcome != nil && outcome.Hidden {
		s.publishAdminEvent(ctx, notifications.EventListingAutoHidden, map[string]interface{}{
			"listing_id":  outcome.ListingID,
			"is_spam":     outcome.IsSpam,
			"is_fraud":    outcome.IsFraud,
			"spam_count":  outcome.SpamCount,
			"fraud_count": outcome.FraudCount,
		})
	}
}
