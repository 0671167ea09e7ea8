package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
)

// CreateVideoInput describes a standalone library video.
type CreateVideoInput struct {
	Title        string
	Description  string
	URL          string
	Category     string
	Duration     int
	ThumbnailURL string
}

// UpdateVideoInput enumerates mutable video attributes.
type UpdateVideoInput struct {
	Title        *string
	Description  *string
	URL          *string
	Category     *string
	Duration     *int
	ThumbnailURL *string
	Status       *models.VideoStatus
}

// ListVideosOptions filters the library.
type ListVideosOptions struct {
	Category string
	// IncludeHidden returns inactive videos as well. Deleted entries are
	// never listed.
	IncludeHidden bool
}

// VideoService manages the standalone video library and playback progress.
type VideoService struct {
	db *gorm.DB
}

// NewVideoService constructs a VideoService.
func NewVideoService(db *gorm.DB) (*VideoService, error) {
	if db == nil {
		return nil, errors.New("video service: db is required")
	}
	return &VideoService{db: db}, nil
}

// Create adds a video to the library.
func (s *VideoService) Create(ctx context.Context, input CreateVideoInput) (*models.Video, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	url := strings.TrimSpace(input.URL)
	switch {
	case title == "":
		return nil, apperrors.NewBadRequest("title is required")
	case url == "":
		return nil, apperrors.NewBadRequest("url is required")
	}

	video := &models.Video{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		URL:          url,
		Category:     strings.TrimSpace(input.Category),
		Duration:     input.Duration,
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
		Status:       models.VideoStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		return nil, fmt.Errorf("video service: create video: %w", err)
	}
	return video, nil
}

// Get loads a single library video. Deleted videos read as not found.
func (s *VideoService) Get(ctx context.Context, id string) (*models.Video, error) {
	ctx = ensureContext(ctx)

	var video models.Video
	err := s.db.WithContext(ctx).
		Take(&video, "id = ? AND status <> ?", id, models.VideoStatusDeleted).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("video service: get video: %w", err)
	}
	return &video, nil
}

// List retrieves library videos, newest first.
func (s *VideoService) List(ctx context.Context, opts ListVideosOptions) ([]models.Video, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Video{}).
		Where("status <> ?", models.VideoStatusDeleted)
	if !opts.IncludeHidden {
		query = query.Where("status = ?", models.VideoStatusActive)
	}
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	var videos []models.Video
	if err := query.Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("video service: list videos: %w", err)
	}
	return videos, nil
}

// Update persists mutable attributes for a library video.
func (s *VideoService) Update(ctx context.Context, id string, input UpdateVideoInput) (*models.Video, error) {
	ctx = ensureContext(ctx)

	var video models.Video
	err := s.db.WithContext(ctx).
		Take(&video, "id = ? AND status <> ?", id, models.VideoStatusDeleted).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("video service: load video: %w", err)
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
	if input.URL != nil {
		if url := strings.TrimSpace(*input.URL); url != "" {
			updates["url"] = url
		}
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Duration != nil {
		updates["duration"] = *input.Duration
	}
	if input.ThumbnailURL != nil {
		updates["thumbnail_url"] = strings.TrimSpace(*input.ThumbnailURL)
	}
	if input.Status != nil {
		switch *input.Status {
		case models.VideoStatusActive, models.VideoStatusInactive:
			updates["status"] = *input.Status
		default:
			return nil, apperrors.NewBadRequest("invalid video status")
		}
	}

	if len(updates) == 0 {
		return &video, nil
	}

	if err := s.db.WithContext(ctx).Model(&video).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("video service: update video: %w", err)
	}
	if err := s.db.WithContext(ctx).Take(&video, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("video service: reload video: %w", err)
	}
	return &video, nil
}

// Delete soft-deletes a video. The row is kept so existing progress records
// stay consistent.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ? AND status <> ?", id, models.VideoStatusDeleted).
		Update("status", models.VideoStatusDeleted)
	if result.Error != nil {
		return fmt.Errorf("video service: delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListCategories returns video categories ordered by name.
func (s *VideoService) ListCategories(ctx context.Context) ([]models.VideoCategory, error) {
	ctx = ensureContext(ctx)

	var categories []models.VideoCategory
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("video service: list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a library category.
func (s *VideoService) CreateCategory(ctx context.Context, name, description string) (*models.VideoCategory, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	category := &models.VideoCategory{
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("category already exists")
		}
		return nil, fmt.Errorf("video service: create category: %w", err)
	}
	return category, nil
}

// ReportProgress upserts the playback position for a (user, video) pair.
func (s *VideoService) ReportProgress(ctx context.Context, userID, videoID string, positionSeconds int, completed bool) (*models.VideoProgress, error) {
	ctx = ensureContext(ctx)

	if userID == "" || videoID == "" {
		return nil, apperrors.NewBadRequest("user id and video id are required")
	}
	if positionSeconds < 0 {
		positionSeconds = 0
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ? AND status <> ?", videoID, models.VideoStatusDeleted).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("video service: check video: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	progress := &models.VideoProgress{
		UserID:          userID,
		VideoID:         videoID,
		PositionSeconds: positionSeconds,
		Completed:       completed,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position_seconds", "completed", "updated_at"}),
	}).Create(progress).Error
	if err != nil {
		return nil, fmt.Errorf("video service: report progress: %w", err)
	}
	return progress, nil
}

// GetProgress returns the user's playback records, most recent first.
func (s *VideoService) GetProgress(ctx context.Context, userID string) ([]models.VideoProgress, error) {
	ctx = ensureContext(ctx)

	var records []models.VideoProgress
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("video service: get progress: %w", err)
	}
	return records, nil
}
