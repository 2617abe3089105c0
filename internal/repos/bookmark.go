package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type QuestionBookmarkRepo interface {
	// Insert relies on the composite unique index as the backstop against a
	// double-submit race; duplicates surface as gorm.ErrDuplicatedKey.
	Insert(ctx context.Context, tx *gorm.DB, bookmark *types.QuestionBookmark) error
	Delete(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (bool, error)
	Exists(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (bool, error)
	ListQuestionsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Question, error)
}

type questionBookmarkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionBookmarkRepo(db *gorm.DB, baseLog *logger.Logger) QuestionBookmarkRepo {
	repoLog := baseLog.With("repo", "QuestionBookmarkRepo")
	return &questionBookmarkRepo{db: db, log: repoLog}
}

func (r *questionBookmarkRepo) Insert(ctx context.Context, tx *gorm.DB, bookmark *types.QuestionBookmark) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if bookmark == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(bookmark).Error
}

func (r *questionBookmarkRepo) Delete(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Delete(&types.QuestionBookmark{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *questionBookmarkRepo) Exists(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionBookmark{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *questionBookmarkRepo) ListQuestionsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Question
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Joins("JOIN question_bookmark ON question_bookmark.question_id = question.id").
		Where("question_bookmark.user_id = ?", userID).
		Order("question_bookmark.created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
