package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Feedback is one developer rating of the context delivered in a session.
type Feedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   string    `gorm:"column:session_id;not null;index" json:"session_id"`
	DeveloperID string    `gorm:"column:developer_id;index" json:"developer_id"`
	TaskID      string    `gorm:"column:task_id" json:"task_id,omitempty"`
	Rating      float64   `gorm:"column:rating;not null" json:"rating"`
	Notes       string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

func (Feedback) TableName() string { return "context_feedback" }

const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// QualityAssessment is the reduced view of a session's feedback. ContextFeatures
// lists the weight keys the rating applies to.
type QualityAssessment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       string         `gorm:"column:session_id;not null;index" json:"session_id"`
	AverageRating   float64        `gorm:"column:average_rating" json:"average_rating"`
	FeedbackCount   int            `gorm:"column:feedback_count" json:"feedback_count"`
	Quality         string         `gorm:"column:quality;not null" json:"quality"`
	ContextFeatures datatypes.JSON `gorm:"column:context_features" json:"context_features"`
	Insights        datatypes.JSON `gorm:"column:insights" json:"insights"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (QualityAssessment) TableName() string { return "context_quality_assessment" }

// ContextSession remembers which sources were populated in the last package
// delivered for a session, so feedback can be attributed to them.
type ContextSession struct {
	SessionID       string         `gorm:"column:session_id;primaryKey" json:"session_id"`
	DeveloperID     string         `gorm:"column:developer_id;index" json:"developer_id"`
	FilePath        string         `gorm:"column:file_path" json:"file_path"`
	ContextFeatures datatypes.JSON `gorm:"column:context_features" json:"context_features"`
	Confidence      float64        `gorm:"column:confidence" json:"confidence"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (ContextSession) TableName() string { return "context_session" }
