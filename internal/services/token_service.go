package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/pkg/crypto"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/metrics"
)

const (
	// defaultTokenHardExpiry bounds how long an unused token stays redeemable.
	// Distinct from the access window the token grants once consumed.
	defaultTokenHardExpiry = 365 * 24 * time.Hour

	defaultDurationMonths = 3
)

// TokenOption customises TokenService behaviour.
type TokenOption func(*TokenService)

// WithTokenClock injects a custom clock, primarily for testing.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTokenHardExpiry overrides the redeemability window for unused tokens.
func WithTokenHardExpiry(d time.Duration) TokenOption {
	return func(s *TokenService) {
		if d > 0 {
			s.hardExpiry = d
		}
	}
}

// WithDefaultDuration overrides the access months granted when an admin
// issues a token without an explicit duration.
func WithDefaultDuration(months int) TokenOption {
	return func(s *TokenService) {
		if months > 0 {
			s.defaultMonths = months
		}
	}
}

// TokenService issues and manages one-time access tokens.
type TokenService struct {
	db            *gorm.DB
	now           func() time.Time
	hardExpiry    time.Duration
	defaultMonths int
}

// NewTokenService constructs a TokenService.
func NewTokenService(db *gorm.DB, opts ...TokenOption) (*TokenService, error) {
	if db == nil {
		return nil, errors.New("token service: db is required")
	}

	service := &TokenService{
		db:            db,
		now:           time.Now,
		hardExpiry:    defaultTokenHardExpiry,
		defaultMonths: defaultDurationMonths,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issue creates a new active token granting durationMonths of access once
// consumed. It is visible to admin listings immediately.
func (s *TokenService) Issue(ctx context.Context, adminID string, durationMonths int) (*models.AccessToken, error) {
	ctx = ensureContext(ctx)

	if adminID == "" {
		return nil, apperrors.NewBadRequest("admin id is required")
	}
	if durationMonths == 0 {
		durationMonths = s.defaultMonths
	}
	if durationMonths < 1 {
		return nil, apperrors.NewBadRequest("duration_months must be a positive integer")
	}

	code, err := crypto.GenerateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("token service: generate code: %w", err)
	}

	hardExpiry := s.now().Add(s.hardExpiry)
	token := &models.AccessToken{
		Code:           code,
		CreatedBy:      adminID,
		Status:         models.TokenStatusActive,
		ExpiresAt:      &hardExpiry,
		DurationMonths: durationMonths,
	}

	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, fmt.Errorf("token service: create token: %w", err)
	}

	metrics.TokensIssued.Inc()
	return token, nil
}

// List returns all tokens, newest first.
func (s *TokenService) List(ctx context.Context) ([]models.AccessToken, error) {
	ctx = ensureContext(ctx)

	var tokens []models.AccessToken
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("token service: list tokens: %w", err)
	}
	return tokens, nil
}

// Revoke marks a token expired so it can no longer be consumed. Used tokens
// stay used; revoking them is a no-op on status.
func (s *TokenService) Revoke(ctx context.Context, tokenID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("id = ? AND status = ?", tokenID, models.TokenStatusActive).
		Update("status", models.TokenStatusExpired)
	if result.Error != nil {
		return fmt.Errorf("token service: revoke token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.AccessToken{}).
			Where("id = ?", tokenID).Count(&count).Error; err != nil {
			return fmt.Errorf("token service: check token: %w", err)
		}
		if count == 0 {
			return apperrors.ErrTokenNotFound
		}
	}
	return nil
}

// Consume atomically transitions the token identified by code from active to
// used and binds it to userID, all within the caller's transaction. The
// conditional update closes the race between the status check and the mark:
// zero rows affected means someone else consumed it first.
func (s *TokenService) Consume(tx *gorm.DB, code, userID string, now time.Time) (*models.AccessToken, error) {
	code = normaliseCode(code)
	if code == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	var token models.AccessToken
	if err := tx.Where("code = ?", code).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, fmt.Errorf("token service: find token: %w", err)
	}

	if !token.Redeemable(now) {
		return nil, apperrors.ErrTokenInvalid
	}

	result := tx.Model(&models.AccessToken{}).
		Where("id = ? AND status = ?", token.ID, models.TokenStatusActive).
		Updates(map[string]any{
			"status":  models.TokenStatusUsed,
			"user_id": userID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("token service: consume token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrTokenInvalid
	}

	token.Status = models.TokenStatusUsed
	token.UserID = &userID
	return &token, nil
}

// ExpireStale flips unused tokens past their hard expiry to expired. Listing
// hygiene only; consumption already rejects them regardless.
func (s *TokenService) ExpireStale(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.AccessToken{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.TokenStatusActive, s.now()).
		Update("status", models.TokenStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("token service: expire stale tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
