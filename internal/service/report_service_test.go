package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classifieds/internal/models"
	"classifieds/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReportService(db *gorm.DB) *ReportService {
	listings := repository.NewListingRepository(db)
	reports := repository.NewReportRepository(db)
	return NewReportService(reports, listings, repository.NewUserRepository(db),
		NewSpamService(listings, reports, DefaultModerationThresholds()))
}

func TestSubmitReportInput_Validate(t *testing.T) {
	reporter := uuid.New()

	tests := []struct {
		name  string
		input SubmitReportInput
	}{
		{"missing listing", SubmitReportInput{ReporterID: reporter, Reason: "spam"}},
		{"missing reporter", SubmitReportInput{ListingID: 1, Reason: "spam"}},
		{"blank reason", SubmitReportInput{ListingID: 1, ReporterID: reporter, Reason: "   "}},
		{"reason too long", SubmitReportInput{ListingID: 1, ReporterID: reporter, Reason: strings.Repeat("r", 501)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			assertValidationError(t, in.Validate())
		})
	}

	ok := SubmitReportInput{ListingID: 1, ReporterID: reporter, Reason: "  " + strings.Repeat("r", 500) + " "}
	require.NoError(t, ok.Validate())
	assert.Len(t, ok.Reason, 500)
}

func TestReportService_Submit_HidesOnThirdSpamReport(t *testing.T) {
	db := setupServiceDB(t)
	svc := newReportService(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	reporter := seedUser(t, db, "reporter")
	l := seedListing(t, db, &models.Listing{Title: "Console", UserID: owner.ID})

	for i, reason := range []string{"spam", "  Spam listing ", "SPAM"} {
		sub, err := svc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: reason})
		require.NoError(t, err)
		require.NotNil(t, sub.Report)
		assert.NotEqual(t, uuid.Nil, sub.Report.ID)
		assert.Equal(t, models.ReportStatusPending, sub.Report.Status)
		assert.Equal(t, "reporter", sub.ReporterName)
		assert.Equal(t, "Console", sub.ListingTitle)
		assert.Equal(t, i+1, sub.Moderation.SpamCount)
		assert.Equal(t, i == 2, sub.Moderation.Hidden)
	}

	stored, err := repository.NewReportRepository(db).ReasonsForListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Contains(t, stored, "Spam listing")

	got := reloadListing(t, db, l.ID)
	assert.Equal(t, models.ListingStatusHidden, got.Status)
	assert.False(t, got.IsActive)
}

func TestReportService_Submit_Errors(t *testing.T) {
	db := setupServiceDB(t)
	svc := newReportService(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	banned := seedUser(t, db, "banned")
	require.NoError(t, db.Model(banned).Update("is_banned", true).Error)
	l := seedListing(t, db, &models.Listing{Title: "Boots", UserID: owner.ID})

	_, err := svc.Submit(ctx, SubmitReportInput{ListingID: 4040, ReporterID: owner.ID, Reason: "spam"})
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = svc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: uuid.New(), Reason: "spam"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: banned.ID, Reason: "spam"})
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeForbidden, appErr.Code)

	_, err = svc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: owner.ID})
	assertValidationError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
}
