// Package middleware provides HTTP middleware for authentication, logging,
// metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errMissingToken   = errors.New("Authorization header required")
	errInvalidFormat  = errors.New("Invalid authorization header format")
	errInvalidToken   = errors.New("Invalid or expired token")
	errInvalidSubject = errors.New("Invalid token subject")
)

// ParseUserID validates an HS256 token and returns the user id carried in
// its "sub" claim. Tokens are issued by the auth service.
func ParseUserID(tokenString, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, errInvalidSubject
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errInvalidSubject
	}
	return userID, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// AuthRequired enforces a valid bearer token and stores the user id in
// c.Locals("userID") and in the user context.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := BearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return authenticate(c, tokenString, secret)
	}
}

// WebSocketAuthRequired accepts the token from the "token" query parameter
// (browsers cannot set headers on upgrade requests) or the Authorization header.
func WebSocketAuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Query("token")
		if tokenString == "" {
			var err error
			tokenString, err = BearerToken(c.Get("Authorization"))
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token required"})
			}
		}
		return authenticate(c, tokenString, secret)
	}
}

func authenticate(c *fiber.Ctx, tokenString, secret string) error {
	userID, err := ParseUserID(tokenString, secret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
	return c.Next()
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals("userID").(uuid.UUID)
	return id, ok && id != uuid.Nil
}
