package models

// VideoStatus controls library visibility. Deleted videos stay in the table
// but are excluded from listings.
type VideoStatus string

const (
	VideoStatusActive   VideoStatus = "active"
	VideoStatusInactive VideoStatus = "inactive"
	VideoStatusDeleted  VideoStatus = "deleted"
)

// Video is a standalone library entry outside any course.
type Video struct {
	BaseModel

	Title        string      `gorm:"not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	URL          string      `gorm:"not null" json:"url"`
	Category     string      `gorm:"index" json:"category"`
	Duration     int         `gorm:"default:0" json:"duration"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Status       VideoStatus `gorm:"type:varchar(20);default:active;index" json:"status"`
}

// VideoCategory labels entries in the standalone library.
type VideoCategory struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// VideoProgress records a user's playback position in a video. One row per
// (user, video) pair, upserted on every report.
type VideoProgress struct {
	BaseModel

	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_user_video" json:"user_id"`
	VideoID string `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_user_video" json:"video_id"`

	PositionSeconds int  `gorm:"default:0" json:"position_seconds"`
	Completed       bool `gorm:"default:false" json:"completed"`
}
