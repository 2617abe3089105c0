package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type AnswerVoteRepo interface {
	GetByUserAndAnswer(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID) (*types.AnswerVote, error)
	// Insert relies on the composite unique index; a duplicate-key error
	// (gorm.ErrDuplicatedKey) signals a concurrent cast for the same pair.
	Insert(ctx context.Context, tx *gorm.DB, vote *types.AnswerVote) error
	UpdateType(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID, voteType types.VoteType) error
	Delete(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID) (bool, error)
	CountByAnswer(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, voteType types.VoteType) (int64, error)
}

type answerVoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerVoteRepo(db *gorm.DB, baseLog *logger.Logger) AnswerVoteRepo {
	repoLog := baseLog.With("repo", "AnswerVoteRepo")
	return &answerVoteRepo{db: db, log: repoLog}
}

func (r *answerVoteRepo) GetByUserAndAnswer(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID) (*types.AnswerVote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || answerID == uuid.Nil {
		return nil, nil
	}
	var vote types.AnswerVote
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND answer_id = ?", userID, answerID).
		Limit(1).
		Find(&vote).Error
	if err != nil {
		return nil, err
	}
	if vote.ID == uuid.Nil {
		return nil, nil
	}
	return &vote, nil
}

func (r *answerVoteRepo) Insert(ctx context.Context, tx *gorm.DB, vote *types.AnswerVote) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if vote == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(vote).Error
}

func (r *answerVoteRepo) UpdateType(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID, voteType types.VoteType) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.AnswerVote{}).
		Where("user_id = ? AND answer_id = ?", userID, answerID).
		Updates(map[string]interface{}{
			"vote_type":  voteType,
			"updated_at": time.Now(),
		}).Error
}

func (r *answerVoteRepo) Delete(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ? AND answer_id = ?", userID, answerID).
		Delete(&types.AnswerVote{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *answerVoteRepo) CountByAnswer(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, voteType types.VoteType) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.AnswerVote{}).
		Where("answer_id = ? AND vote_type = ?", answerID, voteType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
