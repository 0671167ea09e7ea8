package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/api"
	"github.com/dmfesta/tradeacademy/internal/app"
	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/auth/mfa"
	sharedtestutil "github.com/dmfesta/tradeacademy/internal/database/testutil"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Tokens *services.TokenService
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	tokens, err := services.NewTokenService(db)
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, tokens)
	require.NoError(t, err)
	admins, err := services.NewAdminService(db, mfa.New(mfa.WithIssuer("test-suite")))
	require.NoError(t, err)
	courses, err := services.NewCourseService(db)
	require.NoError(t, err)
	videos, err := services.NewVideoService(db)
	require.NoError(t, err)
	trades, err := services.NewTradeService(db)
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}

	router, err := api.NewRouter(api.Services{
		Accounts: accounts,
		Admins:   admins,
		Tokens:   tokens,
		Courses:  courses,
		Videos:   videos,
		Trades:   trades,
	}, jwtSvc, nil, cfg)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Tokens: tokens,
	}
}

// UserPayload captures the subset of member fields returned from auth endpoints.
type UserPayload struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	Balance         float64   `json:"balance"`
}

// SessionResult bundles the JSON response from the register and login endpoints.
type SessionResult struct {
	User  UserPayload `json:"user"`
	Token string      `json:"token"`
}

// AdminLogin authenticates the seeded admin and returns the issued bearer token.
func (e *Env) AdminLogin() string {
	e.T.Helper()

	payload := map[string]string{
		"email":    sharedtestutil.SeedAdminEmail,
		"password": sharedtestutil.SeedAdminPassword,
	}

	w := e.Request(http.MethodPost, "/api/admin/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result struct {
		Token string `json:"token"`
	}
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result.Token
}

// IssueToken creates a fresh registration token through the admin API and
// returns its redeemable code.
func (e *Env) IssueToken(adminToken string, durationMonths int) string {
	e.T.Helper()

	body := map[string]any{}
	if durationMonths > 0 {
		body["duration_months"] = durationMonths
	}

	w := e.Request(http.MethodPost, "/api/admin/tokens", body, adminToken)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Token struct {
			Code string `json:"code"`
		} `json:"token"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.Token.Code)
	return result.Token.Code
}

// RegisterMember redeems the given token code for a fresh member account with
// a unique email and returns the session produced by registration.
func (e *Env) RegisterMember(code string) SessionResult {
	e.T.Helper()

	payload := map[string]string{
		"token":    code,
		"email":    "member-" + uuid.NewString() + "@example.com",
		"name":     "Test Member",
		"password": "MemberPassw0rd!",
	}

	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result SessionResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	require.Equal(e.T, payload["email"], result.User.Email)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
