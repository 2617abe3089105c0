package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

// UserPointTotal is a per-user aggregate of point events.
type UserPointTotal struct {
	UserID uuid.UUID `gorm:"column:user_id"`
	Points int64     `gorm:"column:points"`
}

type PointEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.PointEvent) ([]*types.PointEvent, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointEvent, error)
	SumByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	SumByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error)
	Totals(ctx context.Context, tx *gorm.DB) ([]UserPointTotal, error)
	TotalsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]UserPointTotal, error)
}

type pointEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointEventRepo(db *gorm.DB, baseLog *logger.Logger) PointEventRepo {
	repoLog := baseLog.With("repo", "PointEventRepo")
	return &pointEventRepo{db: db, log: repoLog}
}

func (r *pointEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.PointEvent) ([]*types.PointEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.PointEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *pointEventRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PointEvent
	if userID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pointEventRepo) SumByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.PointEvent{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *pointEventRepo) SumByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.PointEvent{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *pointEventRepo) Totals(ctx context.Context, tx *gorm.DB) ([]UserPointTotal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var totals []UserPointTotal
	if err := transaction.WithContext(ctx).
		Model(&types.PointEvent{}).
		Select("user_id, COALESCE(SUM(points), 0) AS points").
		Group("user_id").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *pointEventRepo) TotalsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]UserPointTotal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var totals []UserPointTotal
	if err := transaction.WithContext(ctx).
		Model(&types.PointEvent{}).
		Select("user_id, COALESCE(SUM(points), 0) AS points").
		Where("created_at >= ?", since).
		Group("user_id").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
