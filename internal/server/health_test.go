package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessCheck(t *testing.T) {
	env := setupServer(t, nil)
	resp := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadinessCheck(t *testing.T) {
	env := setupServer(t, nil)

	resp := env.do(t, http.MethodGet, "/health/ready", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]checkResult `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.Equal(t, "healthy", body.Checks["redis"].Status)
	assert.GreaterOrEqual(t, body.Checks["database"].LatencyMS, int64(0))

	env.mr.Close()
	resp = env.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, "unhealthy", body.Checks["redis"].Status)
}

func TestReadinessCheck_WithoutRedis(t *testing.T) {
	db := setupTestDB(t)
	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)

	env := &testEnv{server: s, app: s.App(), db: db}
	resp := env.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Checks map[string]checkResult `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "unavailable", body.Checks["redis"].Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
}
