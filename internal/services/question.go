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

const maxQuestionTitleLen = 300

type CreateQuestionInput struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	CourseID *uuid.UUID `json:"course_id,omitempty"`
	Urgent   bool       `json:"urgent"`
}

// QuestionSummary pairs a question with its answer count for list views.
type QuestionSummary struct {
	*types.Question
	AnswerCount int64 `json:"answer_count"`
}

// QuestionDetail is the full read model for a single question page.
type QuestionDetail struct {
	*types.Question
	Answers     []*types.Answer `json:"answers"`
	AnswerCount int64           `json:"answer_count"`
	Author      string          `json:"author_name,omitempty"`
}

type QuestionService interface {
	CreateQuestion(ctx context.Context, userID uuid.UUID, input CreateQuestionInput) (*types.Question, error)
	GetQuestions(ctx context.Context, filter repos.QuestionFilter) ([]*QuestionSummary, error)
	GetQuestionByID(ctx context.Context, id uuid.UUID) (*QuestionDetail, error)
	TrendingQuestions(ctx context.Context, limit int) ([]*QuestionSummary, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type questionService struct {
	db  *gorm.DB
	log *logger.Logger

	questionRepo    repos.QuestionRepo
	answerRepo      repos.AnswerRepo
	courseRepo      repos.CourseRepo
	userProfileRepo repos.UserProfileRepo
}

func NewQuestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	questionRepo repos.QuestionRepo,
	answerRepo repos.AnswerRepo,
	courseRepo repos.CourseRepo,
	userProfileRepo repos.UserProfileRepo,
) QuestionService {
	return &questionService{
		db:              db,
		log:             baseLog.With("service", "QuestionService"),
		questionRepo:    questionRepo,
		answerRepo:      answerRepo,
		courseRepo:      courseRepo,
		userProfileRepo: userProfileRepo,
	}
}

func (s *questionService) CreateQuestion(ctx context.Context, userID uuid.UUID, input CreateQuestionInput) (*types.Question, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: posting a question requires identity", apierr.ErrUnauthorized)
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", apierr.ErrValidation)
	}
	if len(title) > maxQuestionTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", apierr.ErrValidation, maxQuestionTitleLen)
	}
	if input.CourseID != nil {
		course, err := s.courseRepo.GetByID(ctx, nil, *input.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			return nil, fmt.Errorf("%w: course %s", apierr.ErrNotFound, *input.CourseID)
		}
	}

	now := time.Now()
	question := &types.Question{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		UserID:    userID,
		CourseID:  input.CourseID,
		Urgent:    input.Urgent,
		Status:    types.QuestionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.questionRepo.Create(ctx, nil, []*types.Question{question}); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.log.Info("Question created", "question_id", question.ID, "urgent", question.Urgent)
	return question, nil
}

func (s *questionService) GetQuestions(ctx context.Context, filter repos.QuestionFilter) ([]*QuestionSummary, error) {
	questions, err := s.questionRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return s.summarize(ctx, questions)
}

func (s *questionService) TrendingQuestions(ctx context.Context, limit int) ([]*QuestionSummary, error) {
	questions, err := s.questionRepo.ListTrending(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list trending: %w", err)
	}
	return s.summarize(ctx, questions)
}

func (s *questionService) summarize(ctx context.Context, questions []*types.Question) ([]*QuestionSummary, error) {
	summaries := make([]*QuestionSummary, 0, len(questions))
	for _, question := range questions {
		count, err := s.answerRepo.CountByQuestionID(ctx, nil, question.ID)
		if err != nil {
			return nil, fmt.Errorf("count answers: %w", err)
		}
		summaries = append(summaries, &QuestionSummary{Question: question, AnswerCount: count})
	}
	return summaries, nil
}

func (s *questionService) GetQuestionByID(ctx context.Context, id uuid.UUID) (*QuestionDetail, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: question id is required", apierr.ErrValidation)
	}
	question, err := s.questionRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if question == nil {
		return nil, fmt.Errorf("%w: question %s", apierr.ErrNotFound, id)
	}

	answers, err := s.answerRepo.GetByQuestionID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	detail := &QuestionDetail{
		Question:    question,
		Answers:     answers,
		AnswerCount: int64(len(answers)),
	}
	if author, err := s.userProfileRepo.GetByID(ctx, nil, question.UserID); err == nil && author != nil {
		detail.Author = author.FullName
	}
	return detail, nil
}

func (s *questionService) IncrementViews(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: question id is required", apierr.ErrValidation)
	}
	return s.questionRepo.IncrementViews(ctx, nil, id)
}
