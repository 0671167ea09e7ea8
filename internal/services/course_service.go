package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
)

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractYouTubeID pulls the 11-character video id out of a YouTube URL.
// Returns the empty string for non-YouTube URLs.
func ExtractYouTubeID(url string) string {
	match := youtubeIDPattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1]
}

// CreateCourseInput describes the fields accepted when creating a course.
type CreateCourseInput struct {
	Title            string
	Description      string
	ThumbnailURL     string
	Category         string
	Difficulty       models.CourseDifficulty
	Price            float64
	Currency         string
	IsPaid           bool
	DurationHours    float64
	InstructorName   string
	InstructorAvatar string
	Status           models.CourseStatus
}

// UpdateCourseInput enumerates mutable course attributes.
type UpdateCourseInput struct {
	Title            *string
	Description      *string
	ThumbnailURL     *string
	Category         *string
	Difficulty       *models.CourseDifficulty
	Price            *float64
	Currency         *string
	IsPaid           *bool
	DurationHours    *float64
	InstructorName   *string
	InstructorAvatar *string
	Status           *models.CourseStatus
}

// CourseVideoInput describes a lesson within a course.
type CourseVideoInput struct {
	Title        string
	Description  string
	VideoURL     string
	Duration     int
	OrderIndex   int
	IsPreview    bool
	ThumbnailURL string
}

// ListCoursesOptions filters the catalogue.
type ListCoursesOptions struct {
	Category   string
	Difficulty models.CourseDifficulty
	// PublicOnly hides drafts and inactive courses from member listings.
	PublicOnly bool
}

// CourseService manages the course catalogue: courses, categories, lessons.
type CourseService struct {
	db *gorm.DB
}

// NewCourseService constructs a CourseService.
func NewCourseService(db *gorm.DB) (*CourseService, error) {
	if db == nil {
		return nil, errors.New("course service: db is required")
	}
	return &CourseService{db: db}, nil
}

// Create adds a course to the catalogue.
func (s *CourseService) Create(ctx context.Context, adminID string, input CreateCourseInput) (*models.Course, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if adminID == "" {
		return nil, apperrors.NewBadRequest("admin id is required")
	}

	course := &models.Course{
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		ThumbnailURL:     strings.TrimSpace(input.ThumbnailURL),
		Category:         strings.TrimSpace(input.Category),
		Difficulty:       input.Difficulty,
		Price:            input.Price,
		Currency:         strings.TrimSpace(input.Currency),
		IsPaid:           input.IsPaid,
		DurationHours:    input.DurationHours,
		InstructorName:   strings.TrimSpace(input.InstructorName),
		InstructorAvatar: strings.TrimSpace(input.InstructorAvatar),
		Status:           input.Status,
		CreatedBy:        adminID,
	}
	if course.Difficulty == "" {
		course.Difficulty = models.DifficultyBeginner
	}
	if course.Currency == "" {
		course.Currency = "USD"
	}
	if course.Status == "" {
		course.Status = models.CourseStatusActive
	}

	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("course service: create course: %w", err)
	}
	return course, nil
}

// Get loads a course including its ordered videos.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	ctx = ensureContext(ctx)

	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Videos", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Take(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("course service: get course: %w", err)
	}
	return &course, nil
}

// List retrieves courses matching the supplied filters, newest first.
func (s *CourseService) List(ctx context.Context, opts ListCoursesOptions) ([]models.Course, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Course{})
	if opts.PublicOnly {
		query = query.Where("status = ?", models.CourseStatusActive)
	}
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}
	if opts.Difficulty != "" {
		query = query.Where("difficulty = ?", opts.Difficulty)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("course service: list courses: %w", err)
	}
	return courses, nil
}

// Update persists mutable attributes for an existing course.
func (s *CourseService) Update(ctx context.Context, id string, input UpdateCourseInput) (*models.Course, error) {
	ctx = ensureContext(ctx)

	var course models.Course
	err := s.db.WithContext(ctx).Take(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("course service: load course: %w", err)
	}

	updates := map[string]any{}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.ThumbnailURL != nil {
		updates["thumbnail_url"] = strings.TrimSpace(*input.ThumbnailURL)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Difficulty != nil {
		updates["difficulty"] = *input.Difficulty
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.Currency != nil {
		updates["currency"] = strings.TrimSpace(*input.Currency)
	}
	if input.IsPaid != nil {
		updates["is_paid"] = *input.IsPaid
	}
	if input.DurationHours != nil {
		updates["duration_hours"] = *input.DurationHours
	}
	if input.InstructorName != nil {
		updates["instructor_name"] = strings.TrimSpace(*input.InstructorName)
	}
	if input.InstructorAvatar != nil {
		updates["instructor_avatar"] = strings.TrimSpace(*input.InstructorAvatar)
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}

	if len(updates) == 0 {
		return &course, nil
	}

	if err := s.db.WithContext(ctx).Model(&course).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("course service: update course: %w", err)
	}
	if err := s.db.WithContext(ctx).Take(&course, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("course service: reload course: %w", err)
	}
	return &course, nil
}

// Delete removes a course and its lessons.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&models.CourseVideo{}).Error; err != nil {
			return fmt.Errorf("course service: delete lessons: %w", err)
		}
		result := tx.Delete(&models.Course{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("course service: delete course: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	return err
}

// ListCategories returns course categories ordered by name.
func (s *CourseService) ListCategories(ctx context.Context) ([]models.CourseCategory, error) {
	ctx = ensureContext(ctx)

	var categories []models.CourseCategory
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("course service: list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a catalogue category.
func (s *CourseService) CreateCategory(ctx context.Context, name, description, color string) (*models.CourseCategory, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	category := &models.CourseCategory{
		Name:        name,
		Description: strings.TrimSpace(description),
		Color:       strings.TrimSpace(color),
	}
	if category.Color == "" {
		category.Color = "#00d4ff"
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("category already exists")
		}
		return nil, fmt.Errorf("course service: create category: %w", err)
	}
	return category, nil
}

// AddVideo appends a lesson to a course. The YouTube id is extracted from the
// URL when present so the client can embed without re-parsing.
func (s *CourseService) AddVideo(ctx context.Context, courseID string, input CourseVideoInput) (*models.CourseVideo, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	videoURL := strings.TrimSpace(input.VideoURL)
	switch {
	case title == "":
		return nil, apperrors.NewBadRequest("title is required")
	case videoURL == "":
		return nil, apperrors.NewBadRequest("video_url is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("course service: check course: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	video := &models.CourseVideo{
		CourseID:     courseID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		VideoURL:     videoURL,
		YouTubeID:    ExtractYouTubeID(videoURL),
		Duration:     input.Duration,
		OrderIndex:   input.OrderIndex,
		IsPreview:    input.IsPreview,
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
	}

	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		return nil, fmt.Errorf("course service: add video: %w", err)
	}
	return video, nil
}

// RemoveVideo deletes a lesson from a course.
func (s *CourseService) RemoveVideo(ctx context.Context, courseID, videoID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", videoID, courseID).
		Delete(&models.CourseVideo{})
	if result.Error != nil {
		return fmt.Errorf("course service: remove video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
