package types

import (
	"time"

	"github.com/google/uuid"
)

type AnswerAuthorType string

const (
	AnswerAuthorHuman AnswerAuthorType = "human"
	AnswerAuthorAI    AnswerAuthorType = "ai"
)

// AnswerAuthor is the tagged author of an answer: a human user or the AI
// fallback. AI answers carry no user id, are excluded from voting and from
// point attribution by construction.
type AnswerAuthor struct {
	Type   AnswerAuthorType `gorm:"not null;column:author_type" json:"type"`
	UserID *uuid.UUID       `gorm:"type:uuid;index;column:author_user_id" json:"user_id,omitempty"`
}

func HumanAuthor(userID uuid.UUID) AnswerAuthor {
	return AnswerAuthor{Type: AnswerAuthorHuman, UserID: &userID}
}

func AIAuthor() AnswerAuthor {
	return AnswerAuthor{Type: AnswerAuthorAI}
}

func (a AnswerAuthor) IsAI() bool {
	return a.Type == AnswerAuthorAI
}

func (a AnswerAuthor) Valid() bool {
	switch a.Type {
	case AnswerAuthorHuman:
		return a.UserID != nil && *a.UserID != uuid.Nil
	case AnswerAuthorAI:
		return a.UserID == nil
	default:
		return false
	}
}

type Answer struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID    `gorm:"type:uuid;not null;index;column:question_id" json:"question_id"`
	Author     AnswerAuthor `gorm:"embedded" json:"author"`
	Content    string       `gorm:"not null;column:content" json:"content"`
	IsAccepted bool         `gorm:"not null;default:false;column:is_accepted" json:"is_accepted"`
	Upvotes    int64        `gorm:"not null;default:0;column:upvotes" json:"upvotes"`
	Downvotes  int64        `gorm:"not null;default:0;column:downvotes" json:"downvotes"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Answer) TableName() string {
	return "answer"
}
