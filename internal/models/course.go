package models

// CourseStatus controls catalogue visibility.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
	CourseStatusDraft    CourseStatus = "draft"
)

// CourseDifficulty buckets courses for the catalogue filters.
type CourseDifficulty string

const (
	DifficultyBeginner     CourseDifficulty = "beginner"
	DifficultyIntermediate CourseDifficulty = "intermediate"
	DifficultyAdvanced     CourseDifficulty = "advanced"
)

// Course groups an ordered set of videos under a category and instructor.
// Price fields are informational; access is governed by the subscription
// lifecycle, not per-course payments.
type Course struct {
	BaseModel

	Title        string           `gorm:"not null" json:"title"`
	Description  string           `gorm:"type:text" json:"description"`
	ThumbnailURL string           `json:"thumbnail_url"`
	Category     string           `gorm:"index" json:"category"`
	Difficulty   CourseDifficulty `gorm:"type:varchar(20);default:beginner" json:"difficulty"`

	Price         float64 `gorm:"default:0" json:"price"`
	Currency      string  `gorm:"default:USD" json:"currency"`
	IsPaid        bool    `gorm:"default:false" json:"is_paid"`
	DurationHours float64 `gorm:"default:0" json:"duration_hours"`

	InstructorName   string `json:"instructor_name"`
	InstructorAvatar string `json:"instructor_avatar"`

	Status    CourseStatus `gorm:"type:varchar(20);default:active;index" json:"status"`
	CreatedBy string       `gorm:"type:uuid;not null" json:"created_by"`

	Videos []CourseVideo `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"videos,omitempty"`
}

// CourseCategory labels courses in the catalogue.
type CourseCategory struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"default:#00d4ff" json:"color"`
}

// CourseVideo is a single lesson within a course. IsPreview lessons are
// visible without an active subscription.
type CourseVideo struct {
	BaseModel

	CourseID    string `gorm:"type:uuid;not null;index" json:"course_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	VideoURL  string `gorm:"not null" json:"video_url"`
	YouTubeID string `gorm:"column:youtube_id" json:"youtube_id"`

	Duration     int    `gorm:"default:0" json:"duration"`
	OrderIndex   int    `gorm:"default:0;index" json:"order_index"`
	IsPreview    bool   `gorm:"default:false" json:"is_preview"`
	ThumbnailURL string `json:"thumbnail_url"`
}
