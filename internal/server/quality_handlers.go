package server

import (
	"classifieds/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetListingQualityScore returns the stored quality score, calculating it
// on first request.
func (s *Server) GetListingQualityScore(c *fiber.Ctx) error {
	listingID, err := parseID(c, "id", "listing")
	if err != nil {
		return nil
	}

	score, err := s.qualityService.GetOrCalculate(c.UserContext(), listingID)
	if err != nil {
		return respondServiceError(c, err, listingID)
	}
	return c.JSON(score)
}

// RecalculateListingQualityScore rescores a listing on demand. Only the
// owner or an admin may trigger it.
func (s *Server) RecalculateListingQualityScore(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	listingID, err := parseID(c, "id", "listing")
	if err != nil {
		return nil
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if isRecordNotFound(err) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Listing", listingID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if listing.UserID != userID {
		admin, err := s.isAdminByUserID(ctx, userID)
		if err != nil && !isRecordNotFound(err) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Only the listing owner can recalculate its score"))
		}
	}

	score, err := s.qualityService.CalculateAndSaveQualityScore(ctx, listingID)
	if err != nil {
		return respondServiceError(c, err, listingID)
	}
	return c.JSON(score)
}
