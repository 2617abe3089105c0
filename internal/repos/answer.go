package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type AnswerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, answers []*types.Answer) ([]*types.Answer, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Answer, error)
	GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.Answer, error)
	CountByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (int64, error)
	CountByAuthorUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)

	// ApplyVoteDelta adjusts both counters in one atomic statement so reads
	// never observe a half-applied switch.
	ApplyVoteDelta(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, upDelta, downDelta int) error

	// MarkAccepted flips is_accepted only while no other answer of the same
	// question is accepted. Returns false when the condition fails.
	MarkAccepted(ctx context.Context, tx *gorm.DB, answerID, questionID uuid.UUID) (bool, error)
}

type answerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	repoLog := baseLog.With("repo", "AnswerRepo")
	return &answerRepo{db: db, log: repoLog}
}

func (r *answerRepo) Create(ctx context.Context, tx *gorm.DB, answers []*types.Answer) ([]*types.Answer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(answers) == 0 {
		return []*types.Answer{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Answer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var answer types.Answer
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&answer).Error
	if err != nil {
		return nil, err
	}
	if answer.ID == uuid.Nil {
		return nil, nil
	}
	return &answer, nil
}

func (r *answerRepo) GetByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) ([]*types.Answer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Answer
	if questionID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *answerRepo) CountByQuestionID(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Answer{}).
		Where("question_id = ?", questionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *answerRepo) CountByAuthorUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Answer{}).
		Where("author_type = ? AND author_user_id = ?", types.AnswerAuthorHuman, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *answerRepo) ApplyVoteDelta(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, upDelta, downDelta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if answerID == uuid.Nil || (upDelta == 0 && downDelta == 0) {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if upDelta != 0 {
		updates["upvotes"] = gorm.Expr("upvotes + ?", upDelta)
	}
	if downDelta != 0 {
		updates["downvotes"] = gorm.Expr("downvotes + ?", downDelta)
	}
	return transaction.WithContext(ctx).
		Model(&types.Answer{}).
		Where("id = ?", answerID).
		Updates(updates).Error
}

func (r *answerRepo) MarkAccepted(ctx context.Context, tx *gorm.DB, answerID, questionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if answerID == uuid.Nil || questionID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Answer{}).
		Where("id = ? AND question_id = ? AND is_accepted = ?", answerID, questionID, false).
		Where("NOT EXISTS (SELECT 1 FROM answer a2 WHERE a2.question_id = ? AND a2.is_accepted = ?)", questionID, true).
		Updates(map[string]interface{}{
			"is_accepted": true,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
