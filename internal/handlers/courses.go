package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// CourseHandler serves the course catalogue for members and admins.
type CourseHandler struct {
	courses *services.CourseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

type createCourseRequest struct {
	Title            string  `json:"title" validate:"required,min=2,max=256"`
	Description      string  `json:"description" validate:"omitempty,max=4096"`
	ThumbnailURL     string  `json:"thumbnail_url" validate:"omitempty,url"`
	Category         string  `json:"category" validate:"omitempty,max=128"`
	Difficulty       string  `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price            float64 `json:"price" validate:"omitempty,gte=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3"`
	IsPaid           bool    `json:"is_paid"`
	DurationHours    float64 `json:"duration_hours" validate:"omitempty,gte=0"`
	InstructorName   string  `json:"instructor_name" validate:"omitempty,max=128"`
	InstructorAvatar string  `json:"instructor_avatar" validate:"omitempty,url"`
	Status           string  `json:"status" validate:"omitempty,oneof=active inactive draft"`
}

type updateCourseRequest struct {
	Title            *string  `json:"title" validate:"omitempty,min=2,max=256"`
	Description      *string  `json:"description" validate:"omitempty,max=4096"`
	ThumbnailURL     *string  `json:"thumbnail_url"`
	Category         *string  `json:"category" validate:"omitempty,max=128"`
	Difficulty       *string  `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price            *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency         *string  `json:"currency" validate:"omitempty,len=3"`
	IsPaid           *bool    `json:"is_paid"`
	DurationHours    *float64 `json:"duration_hours" validate:"omitempty,gte=0"`
	InstructorName   *string  `json:"instructor_name" validate:"omitempty,max=128"`
	InstructorAvatar *string  `json:"instructor_avatar"`
	Status           *string  `json:"status" validate:"omitempty,oneof=active inactive draft"`
}

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=1024"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

type addCourseVideoRequest struct {
	Title        string `json:"title" validate:"required,min=2,max=256"`
	Description  string `json:"description" validate:"omitempty,max=4096"`
	VideoURL     string `json:"video_url" validate:"required,url"`
	Duration     int    `json:"duration" validate:"omitempty,gte=0"`
	OrderIndex   int    `json:"order_index" validate:"omitempty,gte=0"`
	IsPreview    bool   `json:"is_preview"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
}

// GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	opts := services.ListCoursesOptions{
		Category:   c.Query("category"),
		Difficulty: models.CourseDifficulty(c.Query("difficulty")),
		PublicOnly: !c.GetBool(middleware.CtxIsAdminKey),
	}

	courses, err := h.courses.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// GET /api/courses/categories
func (h *CourseHandler) ListCategories(c *gin.Context) {
	categories, err := h.courses.ListCategories(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

// POST /api/admin/courses
func (h *CourseHandler) Create(c *gin.Context) {
	adminID := c.GetString(middleware.CtxUserIDKey)

	var req createCourseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	course, err := h.courses.Create(requestContext(c), adminID, services.CreateCourseInput{
		Title:            req.Title,
		Description:      req.Description,
		ThumbnailURL:     req.ThumbnailURL,
		Category:         req.Category,
		Difficulty:       models.CourseDifficulty(req.Difficulty),
		Price:            req.Price,
		Currency:         req.Currency,
		IsPaid:           req.IsPaid,
		DurationHours:    req.DurationHours,
		InstructorName:   req.InstructorName,
		InstructorAvatar: req.InstructorAvatar,
		Status:           models.CourseStatus(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// PUT /api/admin/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	var req updateCourseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateCourseInput{
		Title:            req.Title,
		Description:      req.Description,
		ThumbnailURL:     req.ThumbnailURL,
		Category:         req.Category,
		Price:            req.Price,
		Currency:         req.Currency,
		IsPaid:           req.IsPaid,
		DurationHours:    req.DurationHours,
		InstructorName:   req.InstructorName,
		InstructorAvatar: req.InstructorAvatar,
	}
	if req.Difficulty != nil {
		difficulty := models.CourseDifficulty(*req.Difficulty)
		input.Difficulty = &difficulty
	}
	if req.Status != nil {
		status := models.CourseStatus(*req.Status)
		input.Status = &status
	}

	course, err := h.courses.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DELETE /api/admin/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/admin/courses/categories
func (h *CourseHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.courses.CreateCategory(requestContext(c), req.Name, req.Description, req.Color)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"category": category})
}

// POST /api/admin/courses/:id/videos
func (h *CourseHandler) AddVideo(c *gin.Context) {
	var req addCourseVideoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	video, err := h.courses.AddVideo(requestContext(c), c.Param("id"), services.CourseVideoInput{
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		Duration:     req.Duration,
		OrderIndex:   req.OrderIndex,
		IsPreview:    req.IsPreview,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"video": video})
}

// DELETE /api/admin/courses/:id/videos/:videoID
func (h *CourseHandler) RemoveVideo(c *gin.Context) {
	err := h.courses.RemoveVideo(requestContext(c), c.Param("id"), c.Param("videoID"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
