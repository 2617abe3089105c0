package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

const defaultCourseName = "General Studies"

// FallbackSchedulerConfig tunes the sweep. Zero values take the defaults
// below; Now is replaceable for deterministic tests.
type FallbackSchedulerConfig struct {
	Window            time.Duration // unanswered age before escalation
	Lease             time.Duration // claim lease before a question is sweepable again
	SweepInterval     time.Duration
	BatchSize         int
	GenerationTimeout time.Duration
	Now               func() time.Time
}

func (c FallbackSchedulerConfig) withDefaults() FallbackSchedulerConfig {
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.Lease <= 0 {
		c.Lease = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 2 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type FallbackFailure struct {
	QuestionID uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

type FallbackSweepResult struct {
	Eligible  int               `json:"eligible"`
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Failures  []FallbackFailure `json:"failures,omitempty"`
}

// FallbackSchedulerService escalates questions that stay unanswered past the
// window by generating exactly one AI answer per question. Claims go through
// a store-level compare-and-swap so concurrent sweepers never double-answer.
type FallbackSchedulerService interface {
	// ProcessFallbacks runs one sweep. Returns apierr.ErrNotConfigured
	// without touching the store when no generation provider is available.
	ProcessFallbacks(ctx context.Context) (*FallbackSweepResult, error)

	// StartWorker runs sweeps on a ticker until ctx is cancelled.
	StartWorker(ctx context.Context)
}

type fallbackSchedulerService struct {
	db     *gorm.DB
	log    *logger.Logger
	cfg    FallbackSchedulerConfig
	tracer trace.Tracer

	questionRepo repos.QuestionRepo
	courseRepo   repos.CourseRepo
	lifecycle    QuestionLifecycleService
	ai           GenerativeClient
}

func NewFallbackSchedulerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg FallbackSchedulerConfig,
	questionRepo repos.QuestionRepo,
	courseRepo repos.CourseRepo,
	lifecycle QuestionLifecycleService,
	ai GenerativeClient,
) FallbackSchedulerService {
	return &fallbackSchedulerService{
		db:           db,
		log:          baseLog.With("service", "FallbackSchedulerService"),
		cfg:          cfg.withDefaults(),
		tracer:       otel.Tracer("doubtclear/fallback"),
		questionRepo: questionRepo,
		courseRepo:   courseRepo,
		lifecycle:    lifecycle,
		ai:           ai,
	}
}

func (s *fallbackSchedulerService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		s.log.Info("Fallback worker started", "interval", s.cfg.SweepInterval.String(), "window", s.cfg.Window.String())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Fallback worker stopped")
				return
			case <-ticker.C:
				res, err := s.ProcessFallbacks(ctx)
				if err != nil {
					if errors.Is(err, apierr.ErrNotConfigured) {
						s.log.Debug("Fallback sweep skipped: generation not configured")
						continue
					}
					s.log.Error("Fallback sweep failed", "error", err)
					continue
				}
				if res.Eligible > 0 {
					s.log.Info("Fallback sweep finished",
						"eligible", res.Eligible,
						"processed", res.Processed,
						"skipped", res.Skipped,
						"failures", len(res.Failures))
				}
			}
		}
	}()
}

func (s *fallbackSchedulerService) ProcessFallbacks(ctx context.Context) (*FallbackSweepResult, error) {
	if !s.ai.IsConfigured() {
		return nil, fmt.Errorf("%w: fallback generation disabled", apierr.ErrNotConfigured)
	}

	ctx, span := s.tracer.Start(ctx, "fallback.sweep")
	defer span.End()

	now := s.cfg.Now()
	cutoff := now.Add(-s.cfg.Window)
	candidates, err := s.questionRepo.ListFallbackCandidates(ctx, nil, cutoff, s.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list candidates")
		return nil, fmt.Errorf("list fallback candidates: %w", err)
	}

	result := &FallbackSweepResult{Eligible: len(candidates)}
	for _, question := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.processOne(ctx, question, result)
	}
	span.SetAttributes(
		attribute.Int("fallback.eligible", result.Eligible),
		attribute.Int("fallback.processed", result.Processed),
		attribute.Int("fallback.skipped", result.Skipped),
		attribute.Int("fallback.failures", len(result.Failures)),
	)
	return result, nil
}

func (s *fallbackSchedulerService) processOne(ctx context.Context, question *types.Question, result *FallbackSweepResult) {
	ctx, span := s.tracer.Start(ctx, "fallback.question",
		trace.WithAttributes(attribute.String("question.id", question.ID.String())))
	defer span.End()

	claimTime := s.cfg.Now()
	claimed, err := s.questionRepo.ClaimForFallback(ctx, nil, question.ID, claimTime, claimTime.Add(-s.cfg.Lease))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim")
		result.Failures = append(result.Failures, FallbackFailure{QuestionID: question.ID, Reason: err.Error()})
		return
	}
	if !claimed {
		// Another sweeper holds the claim, or the question moved on.
		span.SetAttributes(attribute.String("fallback.outcome", "claim_lost"))
		result.Skipped++
		return
	}

	content, err := s.generate(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		s.release(ctx, question.ID)
		result.Failures = append(result.Failures, FallbackFailure{QuestionID: question.ID, Reason: err.Error()})
		s.log.Warn("Fallback generation failed", "question_id", question.ID, "error", err)
		return
	}

	_, err = s.lifecycle.RecordAIAnswer(ctx, question.ID, content)
	if err != nil {
		if errors.Is(err, apierr.ErrStaleFallback) {
			// A human answered between claim and commit. Drop the content.
			span.SetAttributes(attribute.String("fallback.outcome", "superseded"))
			s.release(ctx, question.ID)
			result.Skipped++
			s.log.Info("Fallback superseded by human answer", "question_id", question.ID)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "record answer")
		s.release(ctx, question.ID)
		result.Failures = append(result.Failures, FallbackFailure{QuestionID: question.ID, Reason: err.Error()})
		return
	}
	span.SetAttributes(attribute.String("fallback.outcome", "answered"))
	result.Processed++
}

func (s *fallbackSchedulerService) generate(ctx context.Context, question *types.Question) (string, error) {
	courseName := defaultCourseName
	if question.CourseID != nil {
		course, err := s.courseRepo.GetByID(ctx, nil, *question.CourseID)
		if err != nil {
			s.log.Debug("Course lookup failed, prompting with default course", "question_id", question.ID, "course_id", *question.CourseID, "error", err)
		} else if course != nil {
			courseName = course.Name
		}
	}
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()
	genCtx, span := s.tracer.Start(genCtx, "fallback.generate",
		trace.WithAttributes(attribute.String("course.name", courseName)))
	defer span.End()
	return s.ai.GenerateAnswer(genCtx, question.Title, question.Content, courseName)
}

func (s *fallbackSchedulerService) release(ctx context.Context, questionID uuid.UUID) {
	if err := s.questionRepo.ReleaseFallbackClaim(ctx, nil, questionID); err != nil {
		s.log.Error("Failed to release fallback claim", "question_id", questionID, "error", err)
	}
}
