package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/services"
	appErrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// AdminHandler serves the super-admin login and MFA enrolment surface.
type AdminHandler struct {
	admins *services.AdminService
	jwt    *iauth.JWTService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admins *services.AdminService, jwt *iauth.JWTService) *AdminHandler {
	return &AdminHandler{admins: admins, jwt: jwt}
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTPCode  string `json:"otp_code" validate:"omitempty,len=6"`
}

type mfaActivateRequest struct {
	OTPCode string `json:"otp_code" validate:"required,len=6"`
}

type adminDTO struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin, err := h.admins.Login(requestContext(c), req.Email, req.Password, req.OTPCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:  admin.ID,
		Email:   admin.Email,
		IsAdmin: true,
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to issue session token"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin": adminDTO{
			ID:          admin.ID,
			Email:       admin.Email,
			MFAEnabled:  admin.MFAEnabled,
			LastLoginAt: admin.LastLoginAt,
		},
		"token": token,
	})
}

// POST /api/admin/mfa/enroll
func (h *AdminHandler) EnrollMFA(c *gin.Context) {
	adminID := c.GetString(middleware.CtxUserIDKey)

	enrollment, err := h.admins.EnrollMFA(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, enrollment)
}

// POST /api/admin/mfa/activate
func (h *AdminHandler) ActivateMFA(c *gin.Context) {
	adminID := c.GetString(middleware.CtxUserIDKey)

	var req mfaActivateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.admins.ActivateMFA(requestContext(c), adminID, req.OTPCode); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mfa_enabled": true})
}
