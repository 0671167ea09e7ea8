package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/auth/mfa"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/pkg/crypto"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/metrics"
)

// AdminOption customises AdminService behaviour.
type AdminOption func(*AdminService)

// WithAdminClock injects a custom clock, primarily for testing.
func WithAdminClock(clock func() time.Time) AdminOption {
	return func(s *AdminService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// MFAEnrollment is returned when an admin provisions a new authenticator.
type MFAEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRPNG  string `json:"qr_png"` // base64-encoded PNG
}

// AdminService authenticates super admins and manages their MFA enrolment.
type AdminService struct {
	db   *gorm.DB
	totp *mfa.TOTP
	now  func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB, totp *mfa.TOTP, opts ...AdminOption) (*AdminService, error) {
	if db == nil {
		return nil, errors.New("admin service: db is required")
	}
	if totp == nil {
		totp = mfa.New()
	}

	service := &AdminService{db: db, totp: totp, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Login verifies admin credentials. When MFA is enabled the one-time code is
// mandatory; a valid password without a code yields ErrMFARequired so the
// client can prompt for it.
func (s *AdminService) Login(ctx context.Context, email, password, otpCode string) (*models.Admin, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("admin service: query admin: %w", err)
	}

	if !crypto.VerifyPassword(admin.Password, password) {
		metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	if admin.MFAEnabled {
		if otpCode == "" {
			metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
			return nil, apperrors.ErrMFARequired
		}
		if !s.totp.Verify(admin.MFASecret, otpCode) {
			metrics.AuthAttempts.WithLabelValues("admin", "failure").Inc()
			return nil, apperrors.ErrMFAInvalid
		}
	}

	now := s.now()
	admin.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&admin).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("admin service: update last login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("admin", "success").Inc()
	return &admin, nil
}

// GetByID loads an admin by identifier.
func (s *AdminService) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	ctx = ensureContext(ctx)

	var admin models.Admin
	err := s.db.WithContext(ctx).Take(&admin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admin service: get admin: %w", err)
	}
	return &admin, nil
}

// EnrollMFA provisions a new TOTP secret for the admin. The secret is stored
// but stays inactive until ActivateMFA confirms the authenticator works.
func (s *AdminService) EnrollMFA(ctx context.Context, adminID string) (*MFAEnrollment, error) {
	ctx = ensureContext(ctx)

	admin, err := s.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}

	key, err := s.totp.GenerateKey(admin.Email)
	if err != nil {
		return nil, fmt.Errorf("admin service: enroll mfa: %w", err)
	}

	png, err := s.totp.QRCode(key)
	if err != nil {
		return nil, fmt.Errorf("admin service: render qr: %w", err)
	}

	err = s.db.WithContext(ctx).Model(admin).Updates(map[string]any{
		"mfa_secret":  key.Secret(),
		"mfa_enabled": false,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("admin service: store mfa secret: %w", err)
	}

	return &MFAEnrollment{
		Secret: key.Secret(),
		URL:    key.String(),
		QRPNG:  base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ActivateMFA enables MFA after the admin proves the enrolled authenticator
// produces valid codes.
func (s *AdminService) ActivateMFA(ctx context.Context, adminID, otpCode string) error {
	ctx = ensureContext(ctx)

	admin, err := s.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.MFASecret == "" {
		return apperrors.NewBadRequest("no authenticator enrolled")
	}
	if !s.totp.Verify(admin.MFASecret, otpCode) {
		return apperrors.ErrMFAInvalid
	}

	if err := s.db.WithContext(ctx).Model(admin).Update("mfa_enabled", true).Error; err != nil {
		return fmt.Errorf("admin service: activate mfa: %w", err)
	}
	return nil
}
