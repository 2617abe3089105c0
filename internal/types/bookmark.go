package types

import (
	"time"

	"github.com/google/uuid"
)

// QuestionBookmark is presence-only: existence of the row means bookmarked.
type QuestionBookmark struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_question;column:user_id" json:"user_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_question;column:question_id" json:"question_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (QuestionBookmark) TableName() string {
	return "question_bookmark"
}
