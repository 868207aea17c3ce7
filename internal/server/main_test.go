package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classifieds/internal/cache"
	"classifieds/internal/config"
	"classifieds/internal/database"
	"classifieds/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
	admin  *models.User
	owner  *models.User
	user   *models.User
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                   testSecret,
		Port:                        "0",
		AllowedOrigins:              "http://localhost:5173",
		SpamReportThreshold:         3,
		FraudReportThreshold:        2,
		QualityScoreCacheTTLSeconds: 60,
		ReportRateLimit:             5,
		ReportRateWindowMinutes:     10,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
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

// setupServer builds a fully wired app over SQLite and miniredis. mutate
// may adjust the config before the server is built.
func setupServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	env := &testEnv{server: s, app: s.App(), db: db, mr: mr}
	env.admin = createUser(t, db, "admin", true)
	env.owner = createUser(t, db, "owner", false)
	env.user = createUser(t, db, "reporter", false)
	return env
}

func createUser(t *testing.T, db *gorm.DB, name string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", IsAdmin: admin}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createListing(t *testing.T, db *gorm.DB, l *models.Listing) *models.Listing {
	t.Helper()
	if l.Status == "" {
		l.Status = models.ListingStatusActive
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": u.ID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// do sends a request, authenticated as u when u is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, u *models.User, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, u))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}
