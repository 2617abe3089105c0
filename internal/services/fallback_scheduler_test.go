package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type fakeGenClient struct {
	configured bool
	response   string
	err        error

	calls      int32
	beforeDone func() // runs inside GenerateAnswer, before returning
}

func (f *fakeGenClient) IsConfigured() bool { return f.configured }

func (f *fakeGenClient) GenerateAnswer(ctx context.Context, title, content, courseName string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.beforeDone != nil {
		f.beforeDone()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenClient) StreamAnswer(ctx context.Context, title, content, courseName string, onChunk func(string)) error {
	return apierr.ErrNotConfigured
}

func (f *fakeGenClient) ImproveQuestion(ctx context.Context, title, content, courseName string) (*QuestionImprovement, error) {
	return nil, apierr.ErrNotConfigured
}

func (f *fakeGenClient) SuggestSimilarQuestions(ctx context.Context, title, courseName string) ([]SimilarQuestion, error) {
	return nil, apierr.ErrNotConfigured
}

func (f *fakeGenClient) AnalyzeAnswerQuality(ctx context.Context, question, answer string) (*AnswerQualityReport, error) {
	return nil, apierr.ErrNotConfigured
}

func newTestScheduler(env *testEnv, gen GenerativeClient, now func() time.Time) FallbackSchedulerService {
	return NewFallbackSchedulerService(
		env.db,
		logger.NewNop(),
		FallbackSchedulerConfig{Now: now},
		env.questionRepo,
		env.courseRepo,
		env.lifecycle,
		gen,
	)
}

func TestProcessFallbacks_WindowBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	base := time.Now()
	question := env.createQuestion(t, asker.ID, base)

	gen := &fakeGenClient{configured: true, response: "Generated answer."}
	current := base.Add(14*time.Minute + 59*time.Second)
	scheduler := newTestScheduler(env, gen, func() time.Time { return current })

	res, err := scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("sweep inside window: %v", err)
	}
	if res.Eligible != 0 || atomic.LoadInt32(&gen.calls) != 0 {
		t.Fatalf("expected no eligibility at 14m59s, got %+v calls=%d", res, gen.calls)
	}

	current = base.Add(15*time.Minute + 1*time.Second)
	res, err = scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("sweep past window: %v", err)
	}
	if res.Eligible != 1 || res.Processed != 1 {
		t.Fatalf("expected one processed at 15m01s, got %+v", res)
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAIAssisted {
		t.Fatalf("expected status ai_assisted, got %q", got)
	}
	if atomic.LoadInt32(&gen.calls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", gen.calls)
	}
}

func TestProcessFallbacks_SkipsAnsweredQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	base := time.Now()
	question := env.createQuestion(t, asker.ID, base)
	if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "Answered in time."); err != nil {
		t.Fatalf("human answer: %v", err)
	}

	gen := &fakeGenClient{configured: true, response: "Generated answer."}
	scheduler := newTestScheduler(env, gen, func() time.Time { return base.Add(time.Hour) })

	res, err := scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Eligible != 0 || atomic.LoadInt32(&gen.calls) != 0 {
		t.Fatalf("answered question must not be eligible: %+v calls=%d", res, gen.calls)
	}
}

func TestProcessFallbacks_NotConfiguredFailsFast(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	base := time.Now()
	question := env.createQuestion(t, asker.ID, base)

	gen := &fakeGenClient{configured: false}
	scheduler := newTestScheduler(env, gen, func() time.Time { return base.Add(time.Hour) })

	_, err := scheduler.ProcessFallbacks(context.Background())
	if !errors.Is(err, apierr.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if atomic.LoadInt32(&gen.calls) != 0 {
		t.Fatalf("expected zero generation calls")
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusPending {
		t.Fatalf("question must stay pending, got %q", got)
	}
}

func TestProcessFallbacks_GenerationFailureReleasesClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	base := time.Now()
	question := env.createQuestion(t, asker.ID, base)

	gen := &fakeGenClient{configured: true, err: apierr.ErrUpstreamUnavailable}
	scheduler := newTestScheduler(env, gen, func() time.Time { return base.Add(time.Hour) })

	res, err := scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(res.Failures) != 1 || res.Processed != 0 {
		t.Fatalf("expected one failure, got %+v", res)
	}
	fresh, err := env.questionRepo.GetByID(ctx, nil, question.ID)
	if err != nil || fresh == nil {
		t.Fatalf("reload question: %v", err)
	}
	if fresh.Status != types.QuestionStatusPending || fresh.FallbackClaimedAt != nil {
		t.Fatalf("expected pending with released claim, got status=%q claimed=%v", fresh.Status, fresh.FallbackClaimedAt)
	}

	// The next sweep retries the same question once the provider recovers.
	gen.err = nil
	gen.response = "Recovered answer."
	res, err = scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("expected recovery on second sweep, got %+v", res)
	}
}

func TestProcessFallbacks_ConcurrentSweepersSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	base := time.Now()
	env.createQuestion(t, asker.ID, base)

	gen := &fakeGenClient{configured: true, response: "Generated answer."}
	now := func() time.Time { return base.Add(time.Hour) }
	schedulerA := newTestScheduler(env, gen, now)
	schedulerB := newTestScheduler(env, gen, now)

	var wg sync.WaitGroup
	var processed int32
	for _, s := range []FallbackSchedulerService{schedulerA, schedulerB} {
		wg.Add(1)
		go func(s FallbackSchedulerService) {
			defer wg.Done()
			res, err := s.ProcessFallbacks(context.Background())
			if err != nil {
				t.Errorf("sweep: %v", err)
				return
			}
			atomic.AddInt32(&processed, int32(res.Processed))
		}(s)
	}
	wg.Wait()

	if processed != 1 {
		t.Fatalf("expected exactly one processed across sweepers, got %d", processed)
	}
	if atomic.LoadInt32(&gen.calls) != 1 {
		t.Fatalf("expected exactly one generation call, got %d", gen.calls)
	}
}

func TestProcessFallbacks_HumanAnswerDuringGenerationDiscardsContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "asker")
	helper := env.createUser(t, "helper")
	base := time.Now()
	question := env.createQuestion(t, asker.ID, base)

	gen := &fakeGenClient{configured: true, response: "Generated answer."}
	gen.beforeDone = func() {
		if _, err := env.lifecycle.RecordHumanAnswer(ctx, question.ID, helper.ID, "Beat the fallback."); err != nil {
			t.Errorf("human answer during generation: %v", err)
		}
	}
	scheduler := newTestScheduler(env, gen, func() time.Time { return base.Add(time.Hour) })

	res, err := scheduler.ProcessFallbacks(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Processed != 0 || res.Skipped != 1 {
		t.Fatalf("expected skip after losing the race, got %+v", res)
	}
	if got := env.questionStatus(t, question.ID); got != types.QuestionStatusAnswered {
		t.Fatalf("expected status answered, got %q", got)
	}
	count, err := env.answerRepo.CountByQuestionID(ctx, nil, question.ID)
	if err != nil {
		t.Fatalf("count answers: %v", err)
	}
	if count != 1 {
		t.Fatalf("generated content must be discarded, got %d answers", count)
	}
}
