package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PointEventType string

const (
	PointEventAnswerSubmitted PointEventType = "answer_submitted"
	PointEventAnswerUpvoted   PointEventType = "answer_upvoted"
	PointEventAnswerAccepted  PointEventType = "answer_accepted"
	// PointEventQualityBonus is aggregated like any other event but is never
	// emitted automatically; awarding it is an explicit moderator action.
	PointEventQualityBonus PointEventType = "quality_bonus"
)

// PointEvent is the append-only ground truth for contributor scores. Totals,
// weekly growth and rank are always recomputed from these rows, never
// independently mutated.
type PointEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	EventType  PointEventType `gorm:"not null;column:event_type" json:"event_type"`
	Points     int64          `gorm:"not null;column:points" json:"points"`
	QuestionID *uuid.UUID     `gorm:"type:uuid;column:question_id" json:"question_id,omitempty"`
	AnswerID   *uuid.UUID     `gorm:"type:uuid;column:answer_id" json:"answer_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (PointEvent) TableName() string {
	return "point_event"
}
