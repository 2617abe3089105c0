package types

import (
	"time"

	"github.com/google/uuid"
)

type VoteType string

const (
	VoteTypeUp   VoteType = "up"
	VoteTypeDown VoteType = "down"
)

// AnswerVote holds at most one row per (user, answer) pair. The composite
// unique index is the invariant's backstop under concurrent casts.
type AnswerVote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_answer;column:user_id" json:"user_id"`
	AnswerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_user_answer;column:answer_id" json:"answer_id"`
	VoteType  VoteType  `gorm:"not null;column:vote_type" json:"vote_type"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AnswerVote) TableName() string {
	return "answer_vote"
}
