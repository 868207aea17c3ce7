package server

import (
	"context"
	"errors"
	"log/slog"

	"classifieds/internal/middleware"
	"classifieds/internal/models"
	"classifieds/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a positive numeric route parameter. On failure it writes
// a 400 response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param, label string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label+" ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseUUID is parseID for uuid route parameters.
func parseUUID(c *fiber.Ctx, param, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label+" ID"))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// respondServiceError maps service errors onto HTTP responses. id is the
// identifier echoed in not-found messages.
func respondServiceError(c *fiber.Ctx, err error, id interface{}) error {
	switch {
	case errors.Is(err, service.ErrListingNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Listing", id))
	case errors.Is(err, service.ErrReportNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Report", id))
	case errors.Is(err, service.ErrUserNotFound):
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", id))
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return models.RespondWithError(c, appErr.HTTPStatus(), appErr)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// currentUserID returns the authenticated caller. Routes using it sit behind
// AuthRequired.
func currentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := middleware.UserID(c)
	return id
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin && !user.IsBanned, nil
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.UserID(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := s.isAdminByUserID(c.UserContext(), userID)
		if err != nil && !isRecordNotFound(err) {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}
