package types

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is persisted and exposed externally as one of the four
// literal strings below.
type QuestionStatus string

const (
	QuestionStatusPending    QuestionStatus = "pending"
	QuestionStatusAnswered   QuestionStatus = "answered"
	QuestionStatusAIAssisted QuestionStatus = "ai_assisted"
	QuestionStatusClosed     QuestionStatus = "closed"
)

type Question struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string         `gorm:"not null;column:title" json:"title"`
	Content  string         `gorm:"not null;column:content" json:"content"`
	UserID   uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	CourseID *uuid.UUID     `gorm:"type:uuid;index;column:course_id" json:"course_id,omitempty"`
	Urgent   bool           `gorm:"not null;default:false;column:urgent" json:"urgent"`
	Views    int64          `gorm:"not null;default:0;column:views" json:"views"`
	Status   QuestionStatus `gorm:"not null;default:pending;index;column:status" json:"status"`

	// FallbackClaimedAt is the lease field for the AI fallback claim. Set by a
	// successful compare-and-swap, cleared when the claim is consumed or
	// released. A non-null value older than the lease duration is claimable
	// again.
	FallbackClaimedAt *time.Time `gorm:"column:fallback_claimed_at" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string {
	return "question"
}
