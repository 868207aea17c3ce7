package service

import (
	"context"
	"testing"

	"classifieds/internal/models"
	"classifieds/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAdminService(db *gorm.DB) (*AdminModerationService, *ReportService) {
	listings := repository.NewListingRepository(db)
	reports := repository.NewReportRepository(db)
	users := repository.NewUserRepository(db)
	moderator := NewSpamService(listings, reports, DefaultModerationThresholds())
	return NewAdminModerationService(reports, listings, users, moderator),
		NewReportService(reports, listings, users, moderator)
}

func TestAdminModerationService_Reports(t *testing.T) {
	db := setupServiceDB(t)
	admin, reportsSvc := newAdminService(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	reporter := seedUser(t, db, "reporter")
	l := seedListing(t, db, &models.Listing{Title: "Speaker", UserID: owner.ID})

	first, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: "fraud"})
	require.NoError(t, err)
	second, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: "spam"})
	require.NoError(t, err)

	t.Run("resolve", func(t *testing.T) {
		resolved, err := admin.ResolveReport(ctx, first.Report.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusResolved, resolved.Status)

		pending, err := admin.ListReports(ctx, repository.ReportFilter{Status: models.ReportStatusPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.Report.ID, pending[0].ID)

		_, err = admin.ResolveReport(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrReportNotFound)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, err := admin.ListReports(ctx, repository.ReportFilter{Status: "archived"})
		assertValidationError(t, err)
	})

	t.Run("delete recounts the listing", func(t *testing.T) {
		deleted, err := admin.DeleteReport(ctx, first.Report.ID)
		require.NoError(t, err)
		assert.Equal(t, l.ID, deleted.ListingID)

		got := reloadListing(t, db, l.ID)
		assert.Zero(t, got.FraudReportCount)
		assert.Equal(t, 1, got.SpamReportCount)

		_, err = admin.DeleteReport(ctx, first.Report.ID)
		assert.ErrorIs(t, err, ErrReportNotFound)
	})
}

func TestAdminModerationService_ListingStatus(t *testing.T) {
	db := setupServiceDB(t)
	admin, reportsSvc := newAdminService(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	reporter := seedUser(t, db, "reporter")
	l := seedListing(t, db, &models.Listing{Title: "Scooter", UserID: owner.ID})

	deactivated, err := admin.DeactivateListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusDeactivated, deactivated.Status)
	assert.False(t, deactivated.IsActive)

	for _, reason := range []string{"fraud", "fraud"} {
		_, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: reason})
		require.NoError(t, err)
	}
	hidden := reloadListing(t, db, l.ID)
	require.Equal(t, models.ListingStatusHidden, hidden.Status)

	reactivated, err := admin.ReactivateListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, reactivated.Status)
	assert.True(t, reactivated.IsActive)
	assert.False(t, reactivated.IsFraud)
	assert.Nil(t, reactivated.AutoHiddenAt)

	// Counts are still over threshold, so the next report hides it again.
	sub, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: "more fraud"})
	require.NoError(t, err)
	assert.True(t, sub.Moderation.Hidden)

	_, err = admin.ReactivateListing(ctx, 9999)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestAdminModerationService_SetUserBanned(t *testing.T) {
	db := setupServiceDB(t)
	admin, _ := newAdminService(db)
	ctx := context.Background()

	u := seedUser(t, db, "someone")

	banned, err := admin.SetUserBanned(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	assert.False(t, banned.IsActive)

	unbanned, err := admin.SetUserBanned(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, unbanned.IsBanned)
	assert.True(t, unbanned.IsActive)

	_, err = admin.SetUserBanned(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminModerationService_DeleteReportKeepsReactivatedListingLive(t *testing.T) {
	db := setupServiceDB(t)
	admin, reportsSvc := newAdminService(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	reporter := seedUser(t, db, "reporter")
	l := seedListing(t, db, &models.Listing{Title: "Laptop", UserID: owner.ID})

	for _, reason := range []string{"spam", "spam", "spam"} {
		_, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: reason})
		require.NoError(t, err)
	}
	rude, err := reportsSvc.Submit(ctx, SubmitReportInput{ListingID: l.ID, ReporterID: reporter.ID, Reason: "rude seller"})
	require.NoError(t, err)
	require.Equal(t, models.ListingStatusHidden, reloadListing(t, db, l.ID).Status)

	_, err = admin.ReactivateListing(ctx, l.ID)
	require.NoError(t, err)

	_, err = admin.DeleteReport(ctx, rude.Report.ID)
	require.NoError(t, err)

	got := reloadListing(t, db, l.ID)
	assert.Equal(t, models.ListingStatusActive, got.Status)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsSpam)
	assert.Nil(t, got.AutoHiddenAt)
	assert.Equal(t, 3, got.SpamReportCount)
}
