package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

var testDBSeq int64

type testEnv struct {
	db *gorm.DB

	userProfileRepo repos.UserProfileRepo
	courseRepo      repos.CourseRepo
	questionRepo    repos.QuestionRepo
	answerRepo      repos.AnswerRepo
	voteRepo        repos.AnswerVoteRepo
	bookmarkRepo    repos.QuestionBookmarkRepo
	pointEventRepo  repos.PointEventRepo

	lifecycle QuestionLifecycleService
	votes     VoteLedgerService
	bookmarks BookmarkRegistryService
	ranking   RankingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&types.UserProfile{},
		&types.Course{},
		&types.Question{},
		&types.Answer{},
		&types.AnswerVote{},
		&types.QuestionBookmark{},
		&types.PointEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logger.NewNop()
	env := &testEnv{
		db:              db,
		userProfileRepo: repos.NewUserProfileRepo(db, log),
		courseRepo:      repos.NewCourseRepo(db, log),
		questionRepo:    repos.NewQuestionRepo(db, log),
		answerRepo:      repos.NewAnswerRepo(db, log),
		voteRepo:        repos.NewAnswerVoteRepo(db, log),
		bookmarkRepo:    repos.NewQuestionBookmarkRepo(db, log),
		pointEventRepo:  repos.NewPointEventRepo(db, log),
	}
	env.lifecycle = NewQuestionLifecycleService(db, log, env.questionRepo, env.answerRepo, env.pointEventRepo)
	env.votes = NewVoteLedgerService(db, log, env.voteRepo, env.answerRepo, env.pointEventRepo)
	env.bookmarks = NewBookmarkRegistryService(db, log, env.bookmarkRepo, env.questionRepo)
	env.ranking = NewRankingService(db, log, nil, env.pointEventRepo, env.userProfileRepo, env.questionRepo, env.answerRepo)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *types.UserProfile {
	t.Helper()
	now := time.Now()
	user := &types.UserProfile{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("%s-%s@example.edu", name, uuid.NewString()[:8]),
		Password:  "hashed",
		FullName:  name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := e.userProfileRepo.Create(context.Background(), nil, []*types.UserProfile{user}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) createQuestion(t *testing.T, userID uuid.UUID, createdAt time.Time) *types.Question {
	t.Helper()
	question := &types.Question{
		ID:        uuid.New(),
		Title:     "How do eigenvalues relate to stability?",
		Content:   "Working through a linear systems problem set and stuck on the stability criteria.",
		UserID:    userID,
		Status:    types.QuestionStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if _, err := e.questionRepo.Create(context.Background(), nil, []*types.Question{question}); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return question
}

func (e *testEnv) questionStatus(t *testing.T, id uuid.UUID) types.QuestionStatus {
	t.Helper()
	question, err := e.questionRepo.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if question == nil {
		t.Fatalf("question %s not found", id)
	}
	return question.Status
}

func (e *testEnv) pointSum(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	sum, err := e.pointEventRepo.SumByUser(context.Background(), nil, userID)
	if err != nil {
		t.Fatalf("sum points: %v", err)
	}
	return sum
}
