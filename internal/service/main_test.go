package service

import (
	"errors"
	"testing"

	"classifieds/internal/database"
	"classifieds/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Each pooled connection to ":memory:" would be its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// seedListing stores a listing with one media row per path.
func seedListing(t *testing.T, db *gorm.DB, l *models.Listing, paths ...string) *models.Listing {
	t.Helper()
	if l.Status == "" {
		l.Status = models.ListingStatusActive
	}
	require.NoError(t, db.Create(l).Error)
	for _, p := range paths {
		require.NoError(t, db.Create(&models.Media{ListingID: l.ID, FileName: p, FilePath: p, MediaType: "image/jpeg"}).Error)
	}
	return l
}

func seedReports(t *testing.T, db *gorm.DB, listingID uint, reporter *models.User, reasons ...string) {
	t.Helper()
	for _, reason := range reasons {
		require.NoError(t, db.Create(&models.Report{ListingID: listingID, UserID: reporter.ID, Reason: reason}).Error)
	}
}

func reloadListing(t *testing.T, db *gorm.DB, id uint) *models.Listing {
	t.Helper()
	var l models.Listing
	require.NoError(t, db.First(&l, id).Error)
	return &l
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}
