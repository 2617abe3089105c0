package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

const (
	LeaderboardPeriodAll    = "all"
	LeaderboardPeriodWeekly = "weekly"

	weeklyWindow        = 7 * 24 * time.Hour
	leaderboardMaxSize  = 100
	leaderboardCacheTTL = 30 * time.Second
)

type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	Points       int64     `json:"points"`
	WeeklyGrowth int64     `json:"weekly_growth"`
}

type UserStats struct {
	Points         int64 `json:"points"`
	WeeklyGrowth   int64 `json:"weekly_growth"`
	Rank           int   `json:"rank"`
	QuestionsAsked int64 `json:"questions_asked"`
	AnswersGiven   int64 `json:"answers_given"`
}

// RankingService derives the leaderboard from the point event ledger. The
// ordering is deterministic: points descending, then user id ascending, so
// the same ledger always yields the same ranking.
type RankingService interface {
	Leaderboard(ctx context.Context, period string, limit int) ([]LeaderboardEntry, error)
	UserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)

	// RecentActivity returns the user's newest point events, the raw feed
	// behind the stats.
	RecentActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*types.PointEvent, error)

	// RefreshScoreCaches recomputes the denormalized points and weekly growth
	// columns on user profiles from the ledger.
	RefreshScoreCaches(ctx context.Context) error

	// StartRefreshJob schedules RefreshScoreCaches on the given cron spec.
	// Returns a stop function.
	StartRefreshJob(spec string) (func(), error)
}

type rankingService struct {
	db    *gorm.DB
	log   *logger.Logger
	redis *goredis.Client // optional
	now   func() time.Time

	pointEventRepo  repos.PointEventRepo
	userProfileRepo repos.UserProfileRepo
	questionRepo    repos.QuestionRepo
	answerRepo      repos.AnswerRepo
}

func NewRankingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	redisClient *goredis.Client,
	pointEventRepo repos.PointEventRepo,
	userProfileRepo repos.UserProfileRepo,
	questionRepo repos.QuestionRepo,
	answerRepo repos.AnswerRepo,
) RankingService {
	return &rankingService{
		db:              db,
		log:             baseLog.With("service", "RankingService"),
		redis:           redisClient,
		now:             time.Now,
		pointEventRepo:  pointEventRepo,
		userProfileRepo: userProfileRepo,
		questionRepo:    questionRepo,
		answerRepo:      answerRepo,
	}
}

func (s *rankingService) Leaderboard(ctx context.Context, period string, limit int) ([]LeaderboardEntry, error) {
	switch period {
	case "", LeaderboardPeriodAll:
		period = LeaderboardPeriodAll
	case LeaderboardPeriodWeekly:
	default:
		return nil, fmt.Errorf("%w: period must be weekly or all", apierr.ErrValidation)
	}
	if limit <= 0 || limit > leaderboardMaxSize {
		limit = leaderboardMaxSize
	}

	if cached := s.cachedLeaderboard(ctx, period); cached != nil {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	entries, err := s.computeLeaderboard(ctx, period)
	if err != nil {
		return nil, err
	}
	s.cacheLeaderboard(ctx, period, entries)

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *rankingService) computeLeaderboard(ctx context.Context, period string) ([]LeaderboardEntry, error) {
	weekAgo := s.now().Add(-weeklyWindow)

	allTotals, err := s.pointEventRepo.Totals(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sum point events: %w", err)
	}
	weeklyTotals, err := s.pointEventRepo.TotalsSince(ctx, nil, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("sum weekly point events: %w", err)
	}

	weekly := make(map[uuid.UUID]int64, len(weeklyTotals))
	for _, t := range weeklyTotals {
		weekly[t.UserID] = t.Points
	}

	base := allTotals
	if period == LeaderboardPeriodWeekly {
		base = weeklyTotals
	}

	entries := make([]LeaderboardEntry, 0, len(base))
	ids := make([]uuid.UUID, 0, len(base))
	for _, t := range base {
		entries = append(entries, LeaderboardEntry{
			UserID:       t.UserID,
			Points:       t.Points,
			WeeklyGrowth: weekly[t.UserID],
		})
		ids = append(ids, t.UserID)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return strings.Compare(entries[i].UserID.String(), entries[j].UserID.String()) < 0
	})
	if len(entries) > leaderboardMaxSize {
		entries = entries[:leaderboardMaxSize]
		ids = ids[:0]
		for _, e := range entries {
			ids = append(ids, e.UserID)
		}
	}

	profiles, err := s.userProfileRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	names := make(map[uuid.UUID]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.FullName
	}
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].FullName = names[entries[i].UserID]
	}
	return entries, nil
}

func (s *rankingService) UserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: stats require identity", apierr.ErrUnauthorized)
	}

	points, err := s.pointEventRepo.SumByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}
	weekly, err := s.pointEventRepo.SumByUserSince(ctx, nil, userID, s.now().Add(-weeklyWindow))
	if err != nil {
		return nil, fmt.Errorf("sum weekly points: %w", err)
	}
	questions, err := s.questionRepo.CountByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	answers, err := s.answerRepo.CountByAuthorUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	rank := 0
	board, err := s.computeLeaderboard(ctx, LeaderboardPeriodAll)
	if err != nil {
		// Stats stay useful without a rank; don't fail the whole call.
		s.log.Warn("Leaderboard recompute failed during stats", "user_id", userID, "error", err)
	} else {
		for _, entry := range board {
			if entry.UserID == userID {
				rank = entry.Rank
				break
			}
		}
	}

	return &UserStats{
		Points:         points,
		WeeklyGrowth:   weekly,
		Rank:           rank,
		QuestionsAsked: questions,
		AnswersGiven:   answers,
	}, nil
}

func (s *rankingService) RecentActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*types.PointEvent, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: activity requires identity", apierr.ErrUnauthorized)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.pointEventRepo.GetByUserID(ctx, nil, userID, limit)
}

func (s *rankingService) RefreshScoreCaches(ctx context.Context) error {
	weekAgo := s.now().Add(-weeklyWindow)
	allTotals, err := s.pointEventRepo.Totals(ctx, nil)
	if err != nil {
		return fmt.Errorf("sum point events: %w", err)
	}
	weeklyTotals, err := s.pointEventRepo.TotalsSince(ctx, nil, weekAgo)
	if err != nil {
		return fmt.Errorf("sum weekly point events: %w", err)
	}
	weekly := make(map[uuid.UUID]int64, len(weeklyTotals))
	for _, t := range weeklyTotals {
		weekly[t.UserID] = t.Points
	}

	for _, t := range allTotals {
		if err := s.userProfileRepo.UpdateScoreCache(ctx, nil, t.UserID, t.Points, weekly[t.UserID]); err != nil {
			return fmt.Errorf("update score cache for %s: %w", t.UserID, err)
		}
	}

	if s.redis != nil {
		keys := []string{
			s.cacheKey(LeaderboardPeriodAll),
			s.cacheKey(LeaderboardPeriodWeekly),
		}
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.log.Warn("Failed to invalidate leaderboard cache", "error", err)
		}
	}
	s.log.Info("Score caches refreshed", "users", len(allTotals))
	return nil
}

func (s *rankingService) StartRefreshJob(spec string) (func(), error) {
	if spec == "" {
		spec = "@every 10m"
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.RefreshScoreCaches(ctx); err != nil {
			s.log.Error("Scheduled score refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule score refresh: %w", err)
	}
	c.Start()
	s.log.Info("Score refresh job scheduled", "spec", spec)
	return func() { c.Stop() }, nil
}

func (s *rankingService) cacheKey(period string) string {
	return "leaderboard:" + period
}

func (s *rankingService) cachedLeaderboard(ctx context.Context, period string) []LeaderboardEntry {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, s.cacheKey(period)).Bytes()
	if err != nil {
		return nil
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func (s *rankingService) cacheLeaderboard(ctx context.Context, period string, entries []LeaderboardEntry) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.cacheKey(period), raw, leaderboardCacheTTL).Err(); err != nil {
		s.log.Debug("Failed to cache leaderboard", "error", err)
	}
}
