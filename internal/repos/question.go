package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type QuestionFilter struct {
	CourseID *uuid.UUID
	UserID   *uuid.UUID
	Status   types.QuestionStatus
	Limit    int
}

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error)
	List(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error)
	ListTrending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Question, error)
	CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	IncrementViews(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// ListFallbackCandidates returns pending questions created at or before
	// cutoff that have zero answers.
	ListFallbackCandidates(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.Question, error)

	// ClaimForFallback is the single-winner compare-and-swap: it sets the
	// claim lease only if the question is still pending and either unclaimed
	// or holding a lease older than leaseCutoff. Returns false when the race
	// was lost.
	ClaimForFallback(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time, leaseCutoff time.Time) (bool, error)
	ReleaseFallbackClaim(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// MarkAnswered transitions pending -> answered. A no-op for any other
	// current status; status never moves backward.
	MarkAnswered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

	// MarkAIAssisted transitions pending -> ai_assisted only while the
	// question still has zero answers. Returns false when the condition no
	// longer holds.
	MarkAIAssisted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)

	// MarkClosed transitions any non-closed status to closed. Idempotent.
	MarkClosed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.Question) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(questions) == 0 {
		return []*types.Question{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var question types.Question
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&question).Error
	if err != nil {
		return nil, err
	}
	if question.ID == uuid.Nil {
		return nil, nil
	}
	return &question, nil
}

func (r *questionRepo) List(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Question{}).Order("created_at DESC")
	if filter.CourseID != nil {
		q = q.Where("course_id = ?", *filter.CourseID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var results []*types.Question
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) ListTrending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Question
	if err := transaction.WithContext(ctx).
		Order("views DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementViews bumps the counter in the store. Read-then-write in the
// application would lose updates under concurrency.
func (r *questionRepo) IncrementViews(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"views":      gorm.Expr("views + 1"),
			"updated_at": time.Now(),
		}).Error
}

func (r *questionRepo) ListFallbackCandidates(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Question
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.QuestionStatusPending).
		Where("created_at <= ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM answer WHERE answer.question_id = question.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) ClaimForFallback(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time, leaseCutoff time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ? AND status = ?", id, types.QuestionStatusPending).
		Where("fallback_claimed_at IS NULL OR fallback_claimed_at < ?", leaseCutoff).
		Updates(map[string]interface{}{
			"fallback_claimed_at": now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *questionRepo) ReleaseFallbackClaim(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fallback_claimed_at": nil,
			"updated_at":          time.Now(),
		}).Error
}

func (r *questionRepo) MarkAnswered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ? AND status = ?", id, types.QuestionStatusPending).
		Updates(map[string]interface{}{
			"status":     types.QuestionStatusAnswered,
			"updated_at": time.Now(),
		}).Error
}

func (r *questionRepo) MarkAIAssisted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ? AND status = ?", id, types.QuestionStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM answer WHERE answer.question_id = question.id)").
		Updates(map[string]interface{}{
			"status":              types.QuestionStatusAIAssisted,
			"fallback_claimed_at": nil,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *questionRepo) MarkClosed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("id = ? AND status <> ?", id, types.QuestionStatusClosed).
		Updates(map[string]interface{}{
			"status":     types.QuestionStatusClosed,
			"updated_at": time.Now(),
		}).Error
}
