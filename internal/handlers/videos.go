package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// VideoHandler serves the standalone video library and playback progress.
type VideoHandler struct {
	videos *services.VideoService
}

// NewVideoHandler constructs a VideoHandler.
func NewVideoHandler(videos *services.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

type createVideoRequest struct {
	Title        string `json:"title" validate:"required,min=2,max=256"`
	Description  string `json:"description" validate:"omitempty,max=4096"`
	URL          string `json:"url" validate:"required,url"`
	Category     string `json:"category" validate:"omitempty,max=128"`
	Duration     int    `json:"duration" validate:"omitempty,gte=0"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
}

type updateVideoRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=2,max=256"`
	Description  *string `json:"description" validate:"omitempty,max=4096"`
	URL          *string `json:"url" validate:"omitempty,url"`
	Category     *string `json:"category" validate:"omitempty,max=128"`
	Duration     *int    `json:"duration" validate:"omitempty,gte=0"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type createVideoCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=1024"`
}

type progressRequest struct {
	VideoID         string `json:"video_id" validate:"required"`
	PositionSeconds int    `json:"position_seconds" validate:"gte=0"`
	Completed       bool   `json:"completed"`
}

// GET /api/videos
func (h *VideoHandler) List(c *gin.Context) {
	opts := services.ListVideosOptions{
		Category:      c.Query("category"),
		IncludeHidden: c.GetBool(middleware.CtxIsAdminKey),
	}

	videos, err := h.videos.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"videos": videos})
}

// GET /api/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	video, err := h.videos.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"video": video})
}

// GET /api/videos/categories
func (h *VideoHandler) ListCategories(c *gin.Context) {
	categories, err := h.videos.ListCategories(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

// POST /api/videos/progress
func (h *VideoHandler) ReportProgress(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req progressRequest
	if !bindAndValidate(c, &req) {
		return
	}

	progress, err := h.videos.ReportProgress(requestContext(c), userID, req.VideoID, req.PositionSeconds, req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": progress})
}

// GET /api/videos/progress
func (h *VideoHandler) GetProgress(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	records, err := h.videos.GetProgress(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": records})
}

// POST /api/admin/videos
func (h *VideoHandler) Create(c *gin.Context) {
	var req createVideoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	video, err := h.videos.Create(requestContext(c), services.CreateVideoInput{
		Title:        req.Title,
		Description:  req.Description,
		URL:          req.URL,
		Category:     req.Category,
		Duration:     req.Duration,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"video": video})
}

// PUT /api/admin/videos/:id
func (h *VideoHandler) Update(c *gin.Context) {
	var req updateVideoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateVideoInput{
		Title:        req.Title,
		Description:  req.Description,
		URL:          req.URL,
		Category:     req.Category,
		Duration:     req.Duration,
		ThumbnailURL: req.ThumbnailURL,
	}
	if req.Status != nil {
		status := models.VideoStatus(*req.Status)
		input.Status = &status
	}

	video, err := h.videos.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"video": video})
}

// DELETE /api/admin/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.videos.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/admin/videos/categories
func (h *VideoHandler) CreateCategory(c *gin.Context) {
	var req createVideoCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.videos.CreateCategory(requestContext(c), req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"category": category})
}
