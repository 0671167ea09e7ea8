package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Admin{},
		&models.AccessToken{},
		&models.User{},
		&models.Course{},
		&models.CourseCategory{},
		&models.CourseVideo{},
		&models.Video{},
		&models.VideoCategory{},
		&models.VideoProgress{},
		&models.Trade{},
		&models.PortfolioPosition{},
		&models.MarketPrice{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestTokenServiceIssueDefaults(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewTokenService(db, WithTokenClock(func() time.Time { return current }))
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), "admin-1", 0)
	require.NoError(t, err)
	require.Len(t, token.Code, 12)
	require.Equal(t, models.TokenStatusActive, token.Status)
	require.Equal(t, 3, token.DurationMonths)
	require.NotNil(t, token.ExpiresAt)
	require.Equal(t, current.Add(365*24*time.Hour), token.ExpiresAt.UTC())

	_, err = svc.Issue(context.Background(), "admin-1", -2)
	require.Error(t, err)

	_, err = svc.Issue(context.Background(), "", 6)
	require.Error(t, err)

	// A configured default replaces the built-in three months.
	configured, err := NewTokenService(db,
		WithTokenClock(func() time.Time { return current }),
		WithDefaultDuration(12))
	require.NoError(t, err)

	token, err = configured.Issue(context.Background(), "admin-1", 0)
	require.NoError(t, err)
	require.Equal(t, 12, token.DurationMonths)

	// Explicit durations still win over the default.
	token, err = configured.Issue(context.Background(), "admin-1", 1)
	require.NoError(t, err)
	require.Equal(t, 1, token.DurationMonths)
}

func TestTokenServiceConsumeSingleUse(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewTokenService(db, WithTokenClock(func() time.Time { return current }))
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), "admin-1", 6)
	require.NoError(t, err)

	consumed, err := svc.Consume(db, token.Code, "user-1", current)
	require.NoError(t, err)
	require.Equal(t, models.TokenStatusUsed, consumed.Status)
	require.NotNil(t, consumed.UserID)
	require.Equal(t, "user-1", *consumed.UserID)

	// Second consumption of the same code must fail.
	_, err = svc.Consume(db, token.Code, "user-2", current)
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	var stored models.AccessToken
	require.NoError(t, db.Take(&stored, "id = ?", token.ID).Error)
	require.Equal(t, models.TokenStatusUsed, stored.Status)
	require.Equal(t, "user-1", *stored.UserID)
}

func TestTokenServiceConsumeNormalisesCode(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewTokenService(db, WithTokenClock(func() time.Time { return current }))
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	lowered := "  " + strings.ToLower(token.Code) + " "
	consumed, err := svc.Consume(db, lowered, "user-1", current)
	require.NoError(t, err)
	require.Equal(t, token.ID, consumed.ID)
}

func TestTokenServiceConsumeRejectsStale(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewTokenService(db,
		WithTokenClock(func() time.Time { return current }),
		WithTokenHardExpiry(24*time.Hour),
	)
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	// Unknown code.
	_, err = svc.Consume(db, "NOSUCHCODE00", "user-1", current)
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	// Past the hard expiry the token is no longer redeemable even though it
	// was never consumed.
	_, err = svc.Consume(db, token.Code, "user-1", current.Add(48*time.Hour))
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestTokenServiceRevoke(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewTokenService(db)
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), token.ID))

	var stored models.AccessToken
	require.NoError(t, db.Take(&stored, "id = ?", token.ID).Error)
	require.Equal(t, models.TokenStatusExpired, stored.Status)

	_, err = svc.Consume(db, token.Code, "user-1", time.Now())
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	require.ErrorIs(t, svc.Revoke(context.Background(), "missing"), apperrors.ErrTokenNotFound)
}

func TestTokenServiceExpireStale(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewTokenService(db,
		WithTokenClock(func() time.Time { return current }),
		WithTokenHardExpiry(time.Hour),
	)
	require.NoError(t, err)

	stale, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	// Advance the clock past the redemption window.
	current = current.Add(2 * time.Hour)

	fresh, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	swept, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	var stored models.AccessToken
	require.NoError(t, db.Take(&stored, "id = ?", stale.ID).Error)
	require.Equal(t, models.TokenStatusExpired, stored.Status)

	var storedFresh models.AccessToken
	require.NoError(t, db.Take(&storedFresh, "id = ?", fresh.ID).Error)
	require.Equal(t, models.TokenStatusActive, storedFresh.Status)
}

func TestTokenServiceListNewestFirst(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewTokenService(db)
	require.NoError(t, err)

	first, err := svc.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "admin-1", 6)
	require.NoError(t, err)

	tokens, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	ids := []string{tokens[0].ID, tokens[1].ID}
	require.Contains(t, ids, first.ID)
	require.Contains(t, ids, second.ID)
}
