package server

import (
	"net/http"
	"testing"

	"inkwell/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           map[string]string{"email": "Ada@Example.com", "password": "Passw0rd!", "firstName": "Ada", "lastName": "Lovelace"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Duplicate email",
			body:           map[string]string{"email": "ada@example.com", "password": "Passw0rd!", "firstName": "Ada", "lastName": "Lovelace"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Weak password",
			body:           map[string]string{"email": "bob@example.com", "password": "password", "firstName": "Bob", "lastName": "B"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid email",
			body:           map[string]string{"email": "not-an-email", "password": "Passw0rd!", "firstName": "Bob", "lastName": "B"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.Status, resp.Body)
		})
	}

	resp := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.NotEmpty(t, resp.Body["accessToken"])
	assert.NotEmpty(t, resp.Body["refreshToken"])
	assert.Equal(t, "ada@example.com", resp.Body["user"].(map[string]any)["email"])
	assert.NotContains(t, resp.Body["user"], "password")
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register("ada@example.com")

	resp := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Wr0ngpass"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("ada@example.com")

	resp := env.do(http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.do(http.MethodGet, "/api/auth/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.do(http.MethodPut, "/api/auth/profile", token, map[string]string{"firstName": "Augusta"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	user := resp.Body["user"].(map[string]any)
	assert.Equal(t, "Augusta", user["firstName"])
	assert.Equal(t, "User", user["lastName"])

	resp = env.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Augusta", resp.Body["user"].(map[string]any)["firstName"])
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("ada@example.com")

	resp := env.do(http.MethodPut, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "Wr0ngpass", "newPassword": "N3wPassword",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = env.do(http.MethodPut, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "Passw0rd!", "newPassword": "N3wPassword",
	})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)

	resp = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "N3wPassword"})
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestRefresh_RotatesToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = cache.Close()
		mr.Close()
	})

	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "Passw0rd!", "firstName": "Ada", "lastName": "L",
	})
	require.Equal(t, http.StatusCreated, resp.Status)
	refresh := resp.Body["refreshToken"].(string)

	resp = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.NotEmpty(t, resp.Body["accessToken"])

	resp = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.Status, "a rotated refresh token cannot be reused")

	resp = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = cache.Close()
		mr.Close()
	})

	env := newTestEnv(t)
	token, _ := env.register("ada@example.com")

	resp := env.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)

	resp = env.do(http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Token has been revoked", resp.Body["error"])
}

func TestLogout_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("ada@example.com")

	resp := env.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "INTERNAL_ERROR", resp.Body["code"])
}

func TestRefresh_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "Passw0rd!", "firstName": "Ada", "lastName": "L",
	})
	require.Equal(t, http.StatusCreated, resp.Status)

	resp = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": resp.Body["refreshToken"].(string)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "INTERNAL_ERROR", resp.Body["code"])
}

func TestDeactivatedUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.registerAdmin("admin@example.com")
	token, id := env.register("ada@example.com")

	resp := env.do(http.MethodPut, path("/api/admin/users/%d/status", id), adminToken, map[string]bool{"isActive": false})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)

	resp = env.do(http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}
