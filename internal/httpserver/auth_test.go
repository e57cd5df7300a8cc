package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/taskmanager/auth-service/internal/hash"
	"github.com/taskmanager/auth-service/internal/middleware"
	"github.com/taskmanager/auth-service/internal/models"
	"github.com/taskmanager/auth-service/internal/repo"
	"github.com/taskmanager/auth-service/internal/service"
	"github.com/taskmanager/auth-service/internal/tokens"
	"github.com/taskmanager/auth-service/internal/transport"
)

type testEnv struct {
	e   *echo.Echo
	svc *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Role{}, &models.RefreshToken{}))

	store := &repo.GormRepo{DB: db}
	require.NoError(t, store.EnsureRoles(context.Background(), service.DefaultRole))

	signer := tokens.NewSigner([]byte("test-secret"))
	svc := &service.AuthService{
		Repo:             store,
		Hasher:           hash.NewBcrypt(bcrypt.MinCost),
		Signer:           signer,
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       24 * time.Hour,
		LockoutThreshold: 3,
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		AccessAuth:  middleware.NewAccessAuth(signer),
	})

	return &testEnv{e: e, svc: svc}
}

func (env *testEnv) request(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T, username, email, password string) transport.AuthResponse {
	t.Helper()

	rec := env.request(t, http.MethodPost, "/api/v1/auth/register", transport.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "secret1")

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{service.DefaultRole}, resp.Roles)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	rec := env.request(t, http.MethodPost, "/api/v1/auth/register", transport.RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret1",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{
		Username: "alice",
		Password: "secret1",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginEndpoint_LockedAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")

	for i := 0; i < env.svc.LockoutThreshold; i++ {
		rec := env.request(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{
			Username: "alice",
			Password: "wrong",
		}, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.request(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{
		Username: "alice",
		Password: "secret1",
	}, "")
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "secret1")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/refresh", transport.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, resp.RefreshToken, refreshed.RefreshToken)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/logout", transport.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/refresh", transport.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllEndpoint_RequiresBearer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.register(t, "alice", "alice@example.com", "secret1")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/logout-all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/logout-all", nil, resp.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/refresh", transport.RefreshTokenRequest{
		RefreshToken: resp.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllEndpoint_DoesNotTouchOtherUsers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com", "secret1")
	bob := env.register(t, "bob", "bob@example.com", "secret2")

	rec := env.request(t, http.MethodPost, "/api/v1/auth/logout-all", nil, alice.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/auth/refresh", transport.RefreshTokenRequest{
		RefreshToken: bob.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
