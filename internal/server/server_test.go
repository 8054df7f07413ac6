package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockImageUploader is a mock of the storage.ImageUploader interface
type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) Upload(ctx context.Context, in storage.Upload) (string, error) {
	args := m.Called(ctx, in.Filename)
	return args.String(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		Port:                  "0",
		JWTSecret:             "test-access-secret-0123456789abcdef",
		JWTRefreshSecret:      "test-refresh-secret-0123456789abcdef",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  24,
		ImageMaxUploadSizeMB:  3,
		ClientURL:             "http://localhost:3000",
	}
}

// testEnv is a server running on a migrated in-memory SQLite database
// without Redis.
type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	srv    *Server
	app    *fiber.App
	images *MockImageUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	images := new(MockImageUploader)
	srv := newServer(testConfig(), db, nil, images)
	return &testEnv{t: t, db: db, srv: srv, app: srv.NewApp(), images: images}
}

type testResponse struct {
	Status int
	Body   map[string]any
}

// do sends a JSON request. A nil body sends no payload.
func (e *testEnv) do(method, path, token string, body any) testResponse {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) testResponse {
	e.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	out := testResponse{Status: resp.StatusCode, Body: map[string]any{}}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

// register signs up a user and returns its access token and id.
func (e *testEnv) register(email string) (string, uint) {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":     email,
		"password":  "Passw0rd!",
		"firstName": "Test",
		"lastName":  "User",
	})
	require.Equal(e.t, http.StatusCreated, resp.Status, resp.Body)
	user := resp.Body["user"].(map[string]any)
	return resp.Body["accessToken"].(string), uint(user["id"].(float64))
}

// registerAdmin signs up a user and grants it the admin role.
func (e *testEnv) registerAdmin(email string) (string, uint) {
	e.t.Helper()
	token, id := e.register(email)
	require.NoError(e.t, e.db.Model(&models.User{}).Where("id = ?", id).Update("role", models.RoleAdmin).Error)
	return token, id
}

// createPost creates a post through the API and returns its id.
func (e *testEnv) createPost(token, title, status string) uint {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/posts", token, map[string]any{
		"title":    title,
		"content":  "Body of " + title,
		"category": "technology",
		"status":   status,
		"tags":     []string{"go"},
	})
	require.Equal(e.t, http.StatusCreated, resp.Status, resp.Body)
	return idOf(resp.Body["post"])
}

func idOf(v any) uint {
	return uint(v.(map[string]any)["id"].(float64))
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
