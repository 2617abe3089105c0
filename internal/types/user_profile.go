package types

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile caches points and weekly_growth as denormalized read
// optimizations. RankingEngine recomputes both from point events; rank is
// never stored.
type UserProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password     string    `gorm:"not null;column:password" json:"-"`
	FullName     string    `gorm:"not null;column:full_name" json:"full_name"`
	Points       int64     `gorm:"not null;default:0;column:points" json:"points"`
	WeeklyGrowth int64     `gorm:"not null;default:0;column:weekly_growth" json:"weekly_growth"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profile"
}
