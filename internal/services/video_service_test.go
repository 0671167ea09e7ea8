package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
)

func TestVideoServiceLibraryLifecycle(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewVideoService(db)
	require.NoError(t, err)

	video, err := svc.Create(context.Background(), CreateVideoInput{
		Title:    "Weekly Market Recap",
		URL:      "https://example.com/recap.mp4",
		Category: "Recaps",
	})
	require.NoError(t, err)
	require.Equal(t, models.VideoStatusActive, video.Status)

	_, err = svc.Create(context.Background(), CreateVideoInput{Title: "No URL"})
	require.Error(t, err)

	inactive := models.VideoStatusInactive
	_, err = svc.Update(context.Background(), video.ID, UpdateVideoInput{Status: &inactive})
	require.NoError(t, err)

	// Members only see active entries; admins see hidden ones too.
	visible, err := svc.List(context.Background(), ListVideosOptions{})
	require.NoError(t, err)
	require.Empty(t, visible)

	all, err := svc.List(context.Background(), ListVideosOptions{IncludeHidden: true})
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, svc.Delete(context.Background(), video.ID))

	// Soft deleted entries vanish from every listing and read as missing.
	all, err = svc.List(context.Background(), ListVideosOptions{IncludeHidden: true})
	require.NoError(t, err)
	require.Empty(t, all)

	_, err = svc.Get(context.Background(), video.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), video.ID), apperrors.ErrNotFound)

	// The row itself survives for progress bookkeeping.
	var count int64
	require.NoError(t, db.Model(&models.Video{}).Where("id = ?", video.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestVideoServiceProgressUpsert(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewVideoService(db)
	require.NoError(t, err)

	video, err := svc.Create(context.Background(), CreateVideoInput{
		Title: "Order Flow", URL: "https://example.com/flow.mp4",
	})
	require.NoError(t, err)

	progress, err := svc.ReportProgress(context.Background(), "user-1", video.ID, 90, false)
	require.NoError(t, err)
	require.Equal(t, 90, progress.PositionSeconds)
	require.False(t, progress.Completed)

	// Reporting again updates the same row instead of inserting a second one.
	_, err = svc.ReportProgress(context.Background(), "user-1", video.ID, 300, true)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.VideoProgress{}).
		Where("user_id = ? AND video_id = ?", "user-1", video.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)

	records, err := svc.GetProgress(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 300, records[0].PositionSeconds)
	require.True(t, records[0].Completed)

	// Unknown videos cannot accrue progress.
	_, err = svc.ReportProgress(context.Background(), "user-1", "missing", 10, false)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVideoServiceCategories(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewVideoService(db)
	require.NoError(t, err)

	_, err = svc.CreateCategory(context.Background(), "Livestreams", "")
	require.NoError(t, err)

	_, err = svc.CreateCategory(context.Background(), "Livestreams", "")
	require.Error(t, err)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
}
