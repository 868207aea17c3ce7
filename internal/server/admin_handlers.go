package server

import (
	"classifieds/internal/models"
	"classifieds/internal/notifications"
	"classifieds/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// GetAdminReports lists reports newest first, optionally filtered by status.
func (s *Server) GetAdminReports(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	filter := repository.ReportFilter{
		Status: models.ReportStatus(c.Query("status")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	reports, err := s.adminService.ListReports(c.UserContext(), filter)
	if err != nil {
		return respondServiceError(c, err, nil)
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// ResolveReport marks a report as reviewed.
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	reportID, err := parseUUID(c, "id", "report")
	if err != nil {
		return nil
	}

	report, err := s.adminService.ResolveReport(ctx, reportID)
	if err != nil {
		return respondServiceError(c, err, reportID)
	}

	s.publishAdminEvent(ctx, notifications.EventReportStatusUpdated, map[string]interface{}{
		"report_id":  report.ID,
		"listing_id": report.ListingID,
		"status":     report.Status,
	})
	return c.JSON(report)
}

// DeleteReport removes a report; the listing's counters are recounted.
func (s *Server) DeleteReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	reportID, err := parseUUID(c, "id", "report")
	if err != nil {
		return nil
	}

	report, err := s.adminService.DeleteReport(ctx, reportID)
	if err != nil {
		return respondServiceError(c, err, reportID)
	}

	s.publishAdminEvent(ctx, notifications.EventReportDeleted, map[string]interface{}{
		"report_id":  report.ID,
		"listing_id": report.ListingID,
	})
	return c.JSON(fiber.Map{"message": "Report deleted"})
}

// DeactivateListing takes a listing offline.
func (s *Server) DeactivateListing(c *fiber.Ctx) error {
	return s.changeListingStatus(c, false)
}

// ReactivateListing puts a listing back online, clearing any automatic hold.
func (s *Server) ReactivateListing(c *fiber.Ctx) error {
	return s.changeListingStatus(c, true)
}

func (s *Server) changeListingStatus(c *fiber.Ctx, activate bool) error {
	ctx := c.UserContext()
	listingID, err := parseID(c, "id", "listing")
	if err != nil {
		return nil
	}

	var listing *models.Listing
	if activate {
		listing, err = s.adminService.ReactivateListing(ctx, listingID)
	} else {
		listing, err = s.adminService.DeactivateListing(ctx, listingID)
	}
	if err != nil {
		return respondServiceError(c, err, listingID)
	}

	s.publishAdminEvent(ctx, notifications.EventListingStatusChanged, listingSummary(listing))
	return c.JSON(listing)
}

// GetListingReviewSignals returns the advisory spam detectors for a listing.
func (s *Server) GetListingReviewSignals(c *fiber.Ctx) error {
	listingID, err := parseID(c, "id", "listing")
	if err != nil {
		return nil
	}

	signals, err := s.spamService.ReviewSignals(c.UserContext(), listingID)
	if err != nil {
		return respondServiceError(c, err, listingID)
	}
	return c.JSON(signals)
}

// BanUser bans an account.
func (s *Server) BanUser(c *fiber.Ctx) error {
	return s.setUserBanned(c, true)
}

// UnbanUser lifts a ban.
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	return s.setUserBanned(c, false)
}

func (s *Server) setUserBanned(c *fiber.Ctx, banned bool) error {
	ctx := c.UserContext()
	targetID, err := parseUUID(c, "id", "user")
	if err != nil {
		return nil
	}
	if banned && targetID == currentUserID(c) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("cannot ban yourself"))
	}

	user, err := s.adminService.SetUserBanned(ctx, targetID, banned)
	if err != nil {
		return respondServiceError(c, err, targetID)
	}

	s.publishAdminEvent(ctx, notifications.EventUserStatusUpdated, map[string]interface{}{
		"user_id":   user.ID,
		"is_banned": user.IsBanned,
		"is_active": user.IsActive,
	})
	return c.JSON(user)
}
