package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	appErrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// AuthHandler serves member registration and login.
type AuthHandler struct {
	accounts *services.AccountService
	jwt      *iauth.JWTService
	now      func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *services.AccountService, jwt *iauth.JWTService, now func() time.Time) *AuthHandler {
	if now == nil {
		now = time.Now
	}
	return &AuthHandler{accounts: accounts, jwt: jwt, now: now}
}

type registerRequest struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=128"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userDTO struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	AccessExpiresAt time.Time  `json:"access_expires_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	Balance         float64    `json:"balance"`
	CreatedAt       time.Time  `json:"created_at"`
}

type sessionResponse struct {
	User  userDTO `json:"user"`
	Token string  `json:"token"`
}

func newUserDTO(user *models.User, now time.Time) userDTO {
	return userDTO{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Status:          string(user.EffectiveStatus(now)),
		AccessExpiresAt: user.AccessExpiresAt,
		LastLoginAt:     user.LastLoginAt,
		Balance:         user.Balance,
		CreatedAt:       user.CreatedAt,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Code:     req.Token,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to issue session token"))
		return
	}

	response.Success(c, http.StatusCreated, sessionResponse{
		User:  newUserDTO(user, h.now()),
		Token: token,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to issue session token"))
		return
	}

	response.Success(c, http.StatusOK, sessionResponse{
		User:  newUserDTO(user, h.now()),
		Token: token,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.accounts.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": newUserDTO(user, h.now())})
}
