// Package service contains the listing quality scorer, the report-driven
// spam/fraud moderator and the admin moderation workflows built on them.
package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrListingNotFound is returned when the listing id does not resolve to a
	// row. Callers that only need fire-and-forget semantics may ignore it;
	// nothing is written in that case.
	ErrListingNotFound = errors.New("listing not found")
	// ErrReportNotFound is returned when a report id does not resolve.
	ErrReportNotFound = errors.New("report not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
