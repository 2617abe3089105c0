package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

func TestRecordHumanAnswer_MarksAnsweredAndAwardsPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	question := env.createQuestion(t, asker.ID, time.Now())

	answer, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "Check the sign of the real parts.")
	if err != nil {
		t.Fatalf("RecordHumanAnswer: %v", err)
	}
	if answer.Author.IsAI() {
		t.Fatalf("expected human author")
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAnswered {
		t.Fatalf("expected status answered, got %q", got)
	}
	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted {
		t.Fatalf("expected %d points, got %d", PointsAnswerSubmitted, got)
	}
}

func TestRecordHumanAnswer_SecondAnswerKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	other := env.createUser(t, "other")
	question := env.createQuestion(t, asker.ID, time.Now())

	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "First."); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, other.ID, "Second."); err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAnswered {
		t.Fatalf("expected status answered, got %q", got)
	}
	count, err := env.answerRepo.CountByQuestionID(ctx, nil, question.ID)
	if err != nil {
		t.Fatalf("count answers: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 answers, got %d", count)
	}
}

func TestRecordAIAnswer_TransitionsPendingWithZeroAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	question := env.createQuestion(t, asker.ID, time.Now())

	answer, err := env.lifecycle.RecordAIAnswer(ctx, question.ID, "Eigenvalues with negative real parts imply stability.")
	if err != nil {
		t.Fatalf("RecordAIAnswer: %v", err)
	}
	if !answer.Author.IsAI() || answer.Author.UserID != nil {
		t.Fatalf("expected ai author without user id")
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAIAssisted {
		t.Fatalf("expected status ai_assisted, got %q", got)
	}
}

func TestRecordAIAnswer_StaleAfterHumanAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	question := env.createQuestion(t, asker.ID, time.Now())

	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "Human got here first."); err != nil {
		t.Fatalf("human answer: %v", err)
	}

	_, err := env.lifecycle.RecordAIAnswer(ctx, question.ID, "Too late.")
	if !errors.Is(err, apierr.ErrStaleFallback) {
		t.Fatalf("expected stale fallback error, got %v", err)
	}
	// The generated content must not be persisted.
	count, cErr := env.answerRepo.CountByQuestionID(ctx, nil, question.ID)
	if cErr != nil {
		t.Fatalf("count answers: %v", cErr)
	}
	if count != 1 {
		t.Fatalf("expected 1 answer, got %d", count)
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAnswered {
		t.Fatalf("expected status answered, got %q", got)
	}
}

func TestRecordHumanAnswer_AfterAIAssistedPersistsWithoutRevert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	question := env.createQuestion(t, asker.ID, time.Now())

	if _, err := env.lifecycle.RecordAIAnswer(ctx, question.ID, "AI answer."); err != nil {
		t.Fatalf("ai answer: %v", err)
	}
	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "Late human answer."); err != nil {
		t.Fatalf("human answer: %v", err)
	}
	// ai_assisted holds; the human answer still lands.
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAIAssisted {
		t.Fatalf("expected status ai_assisted, got %q", got)
	}
	count, err := env.answerRepo.CountByQuestionID(ctx, nil, question.ID)
	if err != nil {
		t.Fatalf("count answers: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 answers, got %d", count)
	}
}

func TestClose_IdempotentFromAnyStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	question := env.createQuestion(t, asker.ID, time.Now())

	if err := env.lifecycle.Close(ctx, question.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := env.lifecycle.Close(ctx, question.ID); err != nil {
		t.Fatalf("close again: %v", err)
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusClosed {
		t.Fatalf("expected status closed, got %q", got)
	}
}

func TestAcceptAnswer_SingleAcceptanceAndAward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	other := env.createUser(t, "other")
	question := env.createQuestion(t, asker.ID, time.Now())

	first, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "First.")
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	second, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, other.ID, "Second.")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if err := env.lifecycle.AcceptAnswer(ctx, question.ID, second.ID, helper.ID); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-author, got %v", err)
	}

	if err := env.lifecycle.AcceptAnswer(ctx, question.ID, first.ID, asker.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := env.lifecycle.AcceptAnswer(ctx, question.ID, second.ID, asker.ID); !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("expected conflict on second acceptance, got %v", err)
	}

	if got := env.pointSum(t, helper.ID); got != PointsAnswerSubmitted+PointsAnswerAccepted {
		t.Fatalf("expected %d points, got %d", PointsAnswerSubmitted+PointsAnswerAccepted, got)
	}
}
