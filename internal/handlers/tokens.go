package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// TokenHandler serves the admin token-management surface.
type TokenHandler struct {
	tokens *services.TokenService
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(tokens *services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type issueTokenRequest struct {
	DurationMonths int `json:"duration_months" validate:"omitempty,min=1,max=36"`
}

// POST /api/admin/tokens
func (h *TokenHandler) Issue(c *gin.Context) {
	adminID := c.GetString(middleware.CtxUserIDKey)

	var req issueTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.tokens.Issue(requestContext(c), adminID, req.DurationMonths)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"token": token})
}

// GET /api/admin/tokens
func (h *TokenHandler) List(c *gin.Context) {
	tokens, err := h.tokens.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": tokens})
}

// DELETE /api/admin/tokens/:id
func (h *TokenHandler) Revoke(c *gin.Context) {
	if err := h.tokens.Revoke(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
