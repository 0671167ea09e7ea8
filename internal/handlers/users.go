package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// UserHandler serves the admin user-management surface.
type UserHandler struct {
	accounts *services.AccountService
	now      func() time.Time
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(accounts *services.AccountService, now func() time.Time) *UserHandler {
	if now == nil {
		now = time.Now
	}
	return &UserHandler{accounts: accounts, now: now}
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused deleted"`
}

type renewRequest struct {
	Token string `json:"token" validate:"required"`
}

// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	opts := services.ListUsersOptions{
		Page:           parseIntQuery(c, "page", 1),
		PageSize:       parseIntQuery(c, "page_size", 25),
		Status:         models.UserStatus(c.Query("status")),
		IncludeDeleted: c.Query("include_deleted") == "true",
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 25
	}

	users, total, err := h.accounts.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := h.now()
	dtos := make([]userDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, newUserDTO(&users[i], now))
	}

	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize != 0 {
		totalPages++
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"users": dtos}, &response.Meta{
		Page:       opts.Page,
		PerPage:    opts.PageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// GET /api/admin/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.accounts.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": newUserDTO(user, h.now())})
}

// PUT /api/admin/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.accounts.SetStatus(requestContext(c), c.Param("id"), models.UserStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.accounts.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": newUserDTO(user, h.now())})
}

// POST /api/admin/users/:id/renew
func (h *UserHandler) Renew(c *gin.Context) {
	adminID := c.GetString(middleware.CtxUserIDKey)

	var req renewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Renew(requestContext(c), adminID, c.Param("id"), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": newUserDTO(user, h.now())})
}
