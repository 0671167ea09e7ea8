package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
)

func newTestJWTService(t *testing.T) *iauth.JWTService {
	t.Helper()

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return jwtSvc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newTestJWTService(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: "user-123",
		Email:  "member@example.com",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newTestJWTService(t)

	r := gin.New()
	r.GET("/admin", Auth(jwtSvc), RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	memberToken, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "member-1"})
	require.NoError(t, err)
	adminToken, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "admin-1", IsAdmin: true})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireActiveAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AccessToken{}, &models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	tokens, err := services.NewTokenService(db)
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, tokens)
	require.NoError(t, err)

	users := []models.User{
		{BaseModel: models.BaseModel{ID: "active-1"}, Email: "a@example.com", Name: "Active", Password: "x", Status: models.UserStatusActive, AccessExpiresAt: now.AddDate(0, 3, 0)},
		{BaseModel: models.BaseModel{ID: "lapsed-1"}, Email: "l@example.com", Name: "Lapsed", Password: "x", Status: models.UserStatusActive, AccessExpiresAt: now.AddDate(0, -1, 0)},
		{BaseModel: models.BaseModel{ID: "paused-1"}, Email: "p@example.com", Name: "Paused", Password: "x", Status: models.UserStatusPaused, AccessExpiresAt: now.AddDate(0, 3, 0)},
		{BaseModel: models.BaseModel{ID: "deleted-1"}, Email: "d@example.com", Name: "Deleted", Password: "x", Status: models.UserStatusDeleted, AccessExpiresAt: now.AddDate(0, 3, 0)},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	jwtSvc := newTestJWTService(t)

	r := gin.New()
	r.GET("/member", Auth(jwtSvc), RequireActiveAccess(accounts, func() time.Time { return now }), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	call := func(userID string, isAdmin bool) *httptest.ResponseRecorder {
		token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, IsAdmin: isAdmin})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/member", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, call("active-1", false).Code)
	require.Equal(t, http.StatusForbidden, call("lapsed-1", false).Code)
	require.Equal(t, http.StatusForbidden, call("paused-1", false).Code)
	require.Equal(t, http.StatusUnauthorized, call("deleted-1", false).Code)

	// Unknown subject -> 401
	require.Equal(t, http.StatusUnauthorized, call("ghost-1", false).Code)

	// Admins bypass the member status check entirely
	require.Equal(t, http.StatusOK, call("admin-1", true).Code)
}
