package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

// staleReadVoteRepo serves one nil read, standing in for a racing cast that
// commits its row between this cast's read and insert.
type staleReadVoteRepo struct {
	repos.AnswerVoteRepo
	stale int32
}

func (r *staleReadVoteRepo) GetByUserAndAnswer(ctx context.Context, tx *gorm.DB, userID, answerID uuid.UUID) (*types.AnswerVote, error) {
	if atomic.CompareAndSwapInt32(&r.stale, 1, 0) {
		return nil, nil
	}
	return r.AnswerVoteRepo.GetByUserAndAnswer(ctx, tx, userID, answerID)
}

func TestCastVote_ToggleOffReturnsToStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer.")
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}

	result, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp)
	if err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if !result.Voted || result.VoteType != types.VoteTypeUp || result.Upvotes != 1 {
		t.Fatalf("unexpected result after first cast: %+v", result)
	}
	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted+PointsAnswerUpvoted {
		t.Fatalf("expected upvote award, got %d", got)
	}

	result, err = env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp)
	if err != nil {
		t.Fatalf("second cast: %v", err)
	}
	if result.Voted || result.Upvotes != 0 || result.Downvotes != 0 {
		t.Fatalf("unexpected result after toggle off: %+v", result)
	}
	// Removal is a compensating event, so the award nets out.
	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted {
		t.Fatalf("expected award removed, got %d", got)
	}
}

func TestCastVote_SwitchEqualsDirectCast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer.")
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}

	if _, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp); err != nil {
		t.Fatalf("cast up: %v", err)
	}
	result, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeDown)
	if err != nil {
		t.Fatalf("switch to down: %v", err)
	}
	if !result.Voted || result.VoteType != types.VoteTypeDown {
		t.Fatalf("unexpected result after switch: %+v", result)
	}
	if result.Upvotes != 0 || result.Downvotes != 1 {
		t.Fatalf("expected counters 0/1, got %d/%d", result.Upvotes, result.Downvotes)
	}
	// Net effect equals having cast down directly.
	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted {
		t.Fatalf("expected upvote award reversed, got %d", got)
	}

	vote, err := env.voteRepo.GetByUserAndAnswer(ctx, nil, voter.ID, answer.ID)
	if err != nil {
		t.Fatalf("load vote: %v", err)
	}
	if vote == nil || vote.VoteType != types.VoteTypeDown {
		t.Fatalf("expected single down vote row, got %+v", vote)
	}
}

func TestCastVote_DuplicateInsertResolvesAsToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer.")
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if _, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp); err != nil {
		t.Fatalf("seed cast: %v", err)
	}

	stale := &staleReadVoteRepo{AnswerVoteRepo: env.voteRepo, stale: 1}
	votes := NewVoteLedgerService(env.db, logger.NewNop(), stale, env.answerRepo, env.pointEventRepo)

	// First pass misses the existing row and hits the unique index; the
	// retry sees it and resolves as a toggle off.
	result, err := votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp)
	if err != nil {
		t.Fatalf("racing cast: %v", err)
	}
	if result.Voted || result.Upvotes != 0 || result.Downvotes != 0 {
		t.Fatalf("unexpected result after duplicate insert: %+v", result)
	}
	vote, err := env.voteRepo.GetByUserAndAnswer(ctx, nil, voter.ID, answer.ID)
	if err != nil {
		t.Fatalf("load vote: %v", err)
	}
	if vote != nil {
		t.Fatalf("expected vote row removed, got %+v", vote)
	}
	// The seed upvote award nets out against the compensating event.
	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted {
		t.Fatalf("expected award removed, got %d", got)
	}
}

func TestCastVote_DuplicateInsertResolvesAsSwitch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer.")
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if _, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp); err != nil {
		t.Fatalf("seed cast: %v", err)
	}

	stale := &staleReadVoteRepo{AnswerVoteRepo: env.voteRepo, stale: 1}
	votes := NewVoteLedgerService(env.db, logger.NewNop(), stale, env.answerRepo, env.pointEventRepo)

	result, err := votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeDown)
	if err != nil {
		t.Fatalf("racing cast: %v", err)
	}
	if !result.Voted || result.VoteType != types.VoteTypeDown {
		t.Fatalf("unexpected result after duplicate insert: %+v", result)
	}
	if result.Upvotes != 0 || result.Downvotes != 1 {
		t.Fatalf("expected counters 0/1, got %d/%d", result.Upvotes, result.Downvotes)
	}
	vote, err := env.voteRepo.GetByUserAndAnswer(ctx, nil, voter.ID, answer.ID)
	if err != nil {
		t.Fatalf("load vote: %v", err)
	}
	if vote == nil || vote.VoteType != types.VoteTypeDown {
		t.Fatalf("expected single down vote row, got %+v", vote)
	}
}

func TestCastVote_RejectsAIAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordAIAnswer(ctx, question.ID, "AI answer.")
	if err != nil {
		t.Fatalf("create ai answer: %v", err)
	}

	_, err = env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteTypeUp)
	if !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCastVote_RejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	voter := env.createUser(t, "voter")
	question := env.createQuestion(t, asker.ID, time.Now())
	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "An answer.")
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}

	if _, err := env.votes.CastVote(ctx, voter.ID, answer.ID, types.VoteType("sideways")); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
