package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/doubtclear-backend/internal/types"
)

func (e *testEnv) addPoints(t *testing.T, userID uuid.UUID, points int64, at time.Time) {
	t.Helper()
	event := &types.PointEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: types.PointEventAnswerSubmitted,
		Points:    points,
		CreatedAt: at,
	}
	if _, err := e.pointEventRepo.Create(context.Background(), nil, []*types.PointEvent{event}); err != nil {
		t.Fatalf("create point event: %v", err)
	}
}

func TestLeaderboard_DeterministicTieBreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	users := make([]*types.UserProfile, 4)
	for i := range users {
		users[i] = env.createUser(t, "tied")
		env.addPoints(t, users[i].ID, 40, now.Add(-time.Hour))
	}

	first, err := env.ranking.Leaderboard(ctx, LeaderboardPeriodAll, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(first))
	}

	// Equal points: user id ascending decides the order.
	ids := make([]string, len(first))
	for i, entry := range first {
		ids[i] = entry.UserID.String()
		if entry.Points != 40 {
			t.Fatalf("expected 40 points, got %d", entry.Points)
		}
		if entry.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, entry.Rank)
		}
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("tie-break must order by user id ascending: %v", ids)
	}

	second, err := env.ranking.Leaderboard(ctx, LeaderboardPeriodAll, 10)
	if err != nil {
		t.Fatalf("leaderboard repeat: %v", err)
	}
	for i := range first {
		if first[i].UserID != second[i].UserID {
			t.Fatalf("ranking must be stable across reads: %v vs %v", first[i].UserID, second[i].UserID)
		}
	}
}

func TestLeaderboard_WeeklyWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	veteran := env.createUser(t, "veteran")
	newcomer := env.createUser(t, "newcomer")

	env.addPoints(t, veteran.ID, 100, now.Add(-8*24*time.Hour))
	env.addPoints(t, veteran.ID, 10, now.Add(-24*time.Hour))
	env.addPoints(t, newcomer.ID, 30, now.Add(-24*time.Hour))

	all, err := env.ranking.Leaderboard(ctx, LeaderboardPeriodAll, 10)
	if err != nil {
		t.Fatalf("all-time leaderboard: %v", err)
	}
	if all[0].UserID != veteran.ID || all[0].Points != 110 {
		t.Fatalf("expected veteran on top all-time, got %+v", all[0])
	}
	if all[0].WeeklyGrowth != 10 {
		t.Fatalf("expected weekly growth 10, got %d", all[0].WeeklyGrowth)
	}

	weekly, err := env.ranking.Leaderboard(ctx, LeaderboardPeriodWeekly, 10)
	if err != nil {
		t.Fatalf("weekly leaderboard: %v", err)
	}
	if weekly[0].UserID != newcomer.ID || weekly[0].Points != 30 {
		t.Fatalf("expected newcomer on top weekly, got %+v", weekly[0])
	}
}

func TestLeaderboard_RejectsUnknownPeriod(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.ranking.Leaderboard(context.Background(), "fortnightly", 10); err == nil {
		t.Fatalf("expected validation error for unknown period")
	}
}

func TestUserStats_AggregatesActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	question := env.createQuestion(t, asker.ID, time.Now())
	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer."); err != nil {
		t.Fatalf("answer: %v", err)
	}

	stats, err := env.ranking.UserStats(ctx, helper.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Points != PointsAnswerSubmitted {
		t.Fatalf("expected %d points, got %d", PointsAnswerSubmitted, stats.Points)
	}
	if stats.WeeklyGrowth != PointsAnswerSubmitted {
		t.Fatalf("expected weekly growth %d, got %d", PointsAnswerSubmitted, stats.WeeklyGrowth)
	}
	if stats.AnswersGiven != 1 || stats.QuestionsAsked != 0 {
		t.Fatalf("unexpected activity counts: %+v", stats)
	}
	if stats.Rank != 1 {
		t.Fatalf("expected rank 1, got %d", stats.Rank)
	}
}

func TestRefreshScoreCaches_UpdatesProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()
	user := env.createUser(t, "scored")

	env.addPoints(t, user.ID, 50, now.Add(-10*24*time.Hour))
	env.addPoints(t, user.ID, 15, now.Add(-time.Hour))

	if err := env.ranking.RefreshScoreCaches(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	profile, err := env.userProfileRepo.GetByID(ctx, nil, user.ID)
	if err != nil || profile == nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Points != 65 || profile.WeeklyGrowth != 15 {
		t.Fatalf("expected cached 65/15, got %d/%d", profile.Points, profile.WeeklyGrowth)
	}
}
