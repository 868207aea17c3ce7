package server

import (
	"fmt"
	"net/http"
	"testing"

	"classifieds/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListingQualityScore(t *testing.T) {
	env := setupServer(t, nil)
	l := createListing(t, env.db, &models.Listing{
		Title:    "iPhone 14 Pro Max Brand New",
		Price:    900,
		Category: "phones",
		UserID:   env.owner.ID,
	})
	want := env.server.qualityService.Breakdown(l)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/quality/listings/%d", l.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var score models.QualityScore
	decode(t, resp, &score)
	assert.Equal(t, l.ID, score.ListingID)
	assert.Equal(t, 90, score.TitleScore)
	assert.Equal(t, 0, score.ImageScore)
	assert.Equal(t, want.Overall, score.OverallScore)

	var count int64
	require.NoError(t, env.db.Model(&models.QualityScore{}).Where("listing_id = ?", l.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	t.Run("missing listing", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/quality/listings/9999", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/quality/listings/nope", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRecalculateListingQualityScore(t *testing.T) {
	env := setupServer(t, nil)
	l := createListing(t, env.db, &models.Listing{Title: "URGENT SALE", UserID: env.owner.ID})
	path := fmt.Sprintf("/api/quality/listings/%d/recalculate", l.ID)

	tests := []struct {
		name   string
		caller *models.User
		status int
	}{
		{"unauthenticated", nil, http.StatusUnauthorized},
		{"other user", env.user, http.StatusForbidden},
		{"owner", env.owner, http.StatusOK},
		{"admin", env.admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, path, tt.caller, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				var score models.QualityScore
				decode(t, resp, &score)
				assert.Equal(t, 60, score.TitleScore)
			}
		})
	}

	t.Run("picks up edits", func(t *testing.T) {
		require.NoError(t, env.db.Model(&models.Listing{}).Where("id = ?", l.ID).
			Update("title", "iPhone 14 Pro Max Brand New").Error)

		resp := env.do(t, http.MethodPost, path, env.owner, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/quality/listings/%d", l.ID), nil, nil)
		var score models.QualityScore
		decode(t, resp, &score)
		assert.Equal(t, 90, score.TitleScore)
	})

	t.Run("missing listing", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/quality/listings/9999/recalculate", env.owner, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
