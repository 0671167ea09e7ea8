package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/pkg/crypto"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/metrics"
)

// AccountOption customises AccountService behaviour.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom clock, primarily for testing expiry math.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithStartingBalance overrides the virtual trading balance new members get.
func WithStartingBalance(balance float64) AccountOption {
	return func(s *AccountService) {
		if balance > 0 {
			s.startingBalance = balance
		}
	}
}

// RegisterInput captures the details required to register with an access token.
type RegisterInput struct {
	Code     string
	Email    string
	Name     string
	Password string
}

// ListUsersOptions controls pagination and filtering for user listings.
type ListUsersOptions struct {
	Page           int
	PageSize       int
	Status         models.UserStatus
	IncludeDeleted bool
}

// AccountService owns the member lifecycle: token-gated registration, login
// with computed expiry, admin-triggered renewal and status overrides.
type AccountService struct {
	db              *gorm.DB
	tokens          *TokenService
	now             func() time.Time
	startingBalance float64
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, tokens *TokenService, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: token service is required")
	}

	service := &AccountService{
		db:              db,
		tokens:          tokens,
		now:             time.Now,
		startingBalance: 10000,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register consumes the access token identified by input.Code and creates the
// member account in one transaction. If anything fails the token stays active
// and no user row exists; a token is never left consumed without its user.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	switch {
	case email == "":
		return nil, apperrors.NewBadRequest("email is required")
	case name == "":
		return nil, apperrors.NewBadRequest("name is required")
	case strings.TrimSpace(input.Password) == "":
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Email:     email,
		Name:      name,
		Password:  hashed,
		Status:    models.UserStatusActive,
		Balance:   s.startingBalance,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("account service: check email: %w", err)
		}
		if count > 0 {
			return apperrors.ErrEmailTaken
		}

		token, err := s.tokens.Consume(tx, input.Code, user.ID, now)
		if err != nil {
			return err
		}

		user.TokenID = token.ID
		user.AccessExpiresAt = now.AddDate(0, token.DurationMonths, 0)
		user.LastLoginAt = &now

		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrEmailTaken
			}
			return fmt.Errorf("account service: create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensConsumed.WithLabelValues("register").Inc()
	return user, nil
}

// Authenticate verifies credentials and enforces the computed effective
// status. Expired access is reported distinctly from bad credentials so the
// client can route the member to a renewal flow. The stored status is never
// flipped to expired here; expiry is recomputed on every login.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("user", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("user", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: query user: %w", err)
	}

	// Deleted accounts answer like unknown ones.
	if user.Status == models.UserStatusDeleted {
		metrics.AuthAttempts.WithLabelValues("user", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("user", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	switch user.EffectiveStatus(now) {
	case models.UserStatusExpired:
		metrics.AuthAttempts.WithLabelValues("user", "expired").Inc()
		return nil, apperrors.ErrAccessExpired
	case models.UserStatusPaused:
		metrics.AuthAttempts.WithLabelValues("user", "paused").Inc()
		return nil, apperrors.ErrAccountPaused
	}

	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("account service: update last login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("user", "success").Inc()
	return &user, nil
}

// GetByID loads a user by identifier.
func (s *AccountService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: get user: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied filters with pagination.
// Deleted accounts are hidden unless explicitly requested.
func (s *AccountService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	} else if !opts.IncludeDeleted {
		query = query.Where("status <> ?", models.UserStatusDeleted)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: list users: %w", err)
	}

	return users, total, nil
}

// Renew consumes a fresh token to extend the user's access window and
// reactivate the account. Token consumption and the user update commit
// together or not at all.
func (s *AccountService) Renew(ctx context.Context, adminID, userID, code string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if adminID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	now := s.now()
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("account service: load user: %w", err)
		}

		token, err := s.tokens.Consume(tx, code, user.ID, now)
		if err != nil {
			return err
		}

		expiresAt := now.AddDate(0, token.DurationMonths, 0)
		err = tx.Model(&user).Updates(map[string]any{
			"status":            models.UserStatusActive,
			"access_expires_at": expiresAt,
			"token_id":          token.ID,
			"last_login_at":     now,
		}).Error
		if err != nil {
			return fmt.Errorf("account service: renew user: %w", err)
		}

		user.Status = models.UserStatusActive
		user.AccessExpiresAt = expiresAt
		user.TokenID = token.ID
		user.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensConsumed.WithLabelValues("renew").Inc()
	return &user, nil
}

// SetStatus overwrites the persisted status. It never touches the access
// window: reactivating a lapsed account without a renewal leaves the
// effective status expired. Setting the same status twice is a no-op apart
// from the updated_at touch.
func (s *AccountService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	ctx = ensureContext(ctx)

	if !status.Valid() {
		return apperrors.NewBadRequest("status must be one of active, paused, deleted")
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("account service: set status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
