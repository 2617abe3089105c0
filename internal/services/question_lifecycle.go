package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

// Fixed awards per scored event. The quality bonus has no automatic trigger.
const (
	PointsAnswerSubmitted int64 = 10
	PointsAnswerUpvoted   int64 = 5
	PointsAnswerAccepted  int64 = 25
)

// QuestionLifecycleService owns every status mutation of a question:
// pending -> {answered, ai_assisted} -> closed, plus pending -> closed.
// answered and ai_assisted are mutually exclusive and reachable only from
// pending; closed is terminal.
type QuestionLifecycleService interface {
	// RecordHumanAnswer always persists the answer. The status transition
	// pending -> answered happens only when the question is still pending;
	// status never moves backward.
	RecordHumanAnswer(ctx context.Context, questionID, authorID uuid.UUID, content string) (*types.Answer, error)

	// RecordAIAnswer commits only while the question is pending with zero
	// answers; otherwise it fails with apierr.ErrStaleFallback and the
	// generated content must be discarded, never persisted as an orphan.
	RecordAIAnswer(ctx context.Context, questionID uuid.UUID, content string) (*types.Answer, error)

	// AcceptAnswer marks the single accepted answer of a question. Only the
	// question author may accept; human authors receive the acceptance award.
	AcceptAnswer(ctx context.Context, questionID, answerID, byUserID uuid.UUID) error

	// Close transitions any non-closed status to closed. Idempotent.
	Close(ctx context.Context, questionID uuid.UUID) error
}

type questionLifecycleService struct {
	db  *gorm.DB
	log *logger.Logger

	questionRepo   repos.QuestionRepo
	answerRepo     repos.AnswerRepo
	pointEventRepo repos.PointEventRepo
}

func NewQuestionLifecycleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	questionRepo repos.QuestionRepo,
	answerRepo repos.AnswerRepo,
	pointEventRepo repos.PointEventRepo,
) QuestionLifecycleService {
	return &questionLifecycleService{
		db:             db,
		log:            baseLog.With("service", "QuestionLifecycleService"),
		questionRepo:   questionRepo,
		answerRepo:     answerRepo,
		pointEventRepo: pointEventRepo,
	}
}

func (s *questionLifecycleService) RecordHumanAnswer(ctx context.Context, questionID, authorID uuid.UUID, content string) (*types.Answer, error) {
	if authorID == uuid.Nil {
		return nil, fmt.Errorf("%w: answer submission requires identity", apierr.ErrUnauthorized)
	}
	if questionID == uuid.Nil || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: question id and content are required", apierr.ErrValidation)
	}

	now := time.Now()
	answer := &types.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		Author:     types.HumanAuthor(authorID),
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.questionRepo.GetByID(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("load question: %w", err)
		}
		if question == nil {
			return fmt.Errorf("%w: question %s", apierr.ErrNotFound, questionID)
		}

		if _, err := s.answerRepo.Create(ctx, tx, []*types.Answer{answer}); err != nil {
			return fmt.Errorf("create answer: %w", err)
		}

		// First human answer wins the transition; later ones keep status.
		if err := s.questionRepo.MarkAnswered(ctx, tx, questionID); err != nil {
			return fmt.Errorf("mark answered: %w", err)
		}

		event := &types.PointEvent{
			ID:         uuid.New(),
			UserID:     authorID,
			EventType:  types.PointEventAnswerSubmitted,
			Points:     PointsAnswerSubmitted,
			QuestionID: &questionID,
			AnswerID:   &answer.ID,
			CreatedAt:  now,
		}
		if _, err := s.pointEventRepo.Create(ctx, tx, []*types.PointEvent{event}); err != nil {
			return fmt.Errorf("create point event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("Human answer recorded", "question_id", questionID, "answer_id", answer.ID)
	return answer, nil
}

func (s *questionLifecycleService) RecordAIAnswer(ctx context.Context, questionID uuid.UUID, content string) (*types.Answer, error) {
	if questionID == uuid.Nil || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: question id and content are required", apierr.ErrValidation)
	}

	now := time.Now()
	answer := &types.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		Author:     types.AIAuthor(),
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.questionRepo.GetByID(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("load question: %w", err)
		}
		if question == nil {
			return fmt.Errorf("%w: question %s", apierr.ErrNotFound, questionID)
		}

		// Single conditional update: still pending AND zero answers. The
		// answer insert below happens in the same transaction, so the commit
		// is atomic with the status flip.
		ok, err := s.questionRepo.MarkAIAssisted(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("mark ai_assisted: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: question %s is no longer eligible", apierr.ErrStaleFallback, questionID)
		}

		if _, err := s.answerRepo.Create(ctx, tx, []*types.Answer{answer}); err != nil {
			return fmt.Errorf("create ai answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("AI answer recorded", "question_id", questionID, "answer_id", answer.ID)
	return answer, nil
}

func (s *questionLifecycleService) AcceptAnswer(ctx context.Context, questionID, answerID, byUserID uuid.UUID) error {
	if byUserID == uuid.Nil {
		return fmt.Errorf("%w: accepting an answer requires identity", apierr.ErrUnauthorized)
	}
	if questionID == uuid.Nil || answerID == uuid.Nil {
		return fmt.Errorf("%w: question id and answer id are required", apierr.ErrValidation)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.questionRepo.GetByID(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("load question: %w", err)
		}
		if question == nil {
			return fmt.Errorf("%w: question %s", apierr.ErrNotFound, questionID)
		}
		if question.UserID != byUserID {
			return fmt.Errorf("%w: only the question author can accept an answer", apierr.ErrUnauthorized)
		}

		answer, err := s.answerRepo.GetByID(ctx, tx, answerID)
		if err != nil {
			return fmt.Errorf("load answer: %w", err)
		}
		if answer == nil || answer.QuestionID != questionID {
			return fmt.Errorf("%w: answer %s", apierr.ErrNotFound, answerID)
		}

		ok, err := s.answerRepo.MarkAccepted(ctx, tx, answerID, questionID)
		if err != nil {
			return fmt.Errorf("mark accepted: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: question %s already has an accepted answer", apierr.ErrConflict, questionID)
		}

		// AI answers are excluded from point attribution by construction.
		if answer.Author.IsAI() || answer.Author.UserID == nil {
			return nil
		}
		event := &types.PointEvent{
			ID:         uuid.New(),
			UserID:     *answer.Author.UserID,
			EventType:  types.PointEventAnswerAccepted,
			Points:     PointsAnswerAccepted,
			QuestionID: &questionID,
			AnswerID:   &answerID,
			CreatedAt:  time.Now(),
		}
		if _, err := s.pointEventRepo.Create(ctx, tx, []*types.PointEvent{event}); err != nil {
			return fmt.Errorf("create point event: %w", err)
		}
		return nil
	})
}

func (s *questionLifecycleService) Close(ctx context.Context, questionID uuid.UUID) error {
	if questionID == uuid.Nil {
		return fmt.Errorf("%w: question id is required", apierr.ErrValidation)
	}
	question, err := s.questionRepo.GetByID(ctx, nil, questionID)
	if err != nil {
		return fmt.Errorf("load question: %w", err)
	}
	if question == nil {
		return fmt.Errorf("%w: question %s", apierr.ErrNotFound, questionID)
	}
	return s.questionRepo.MarkClosed(ctx, nil, questionID)
}
