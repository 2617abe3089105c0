package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

// BookmarkRegistryService tracks question bookmarks as pure presence rows.
// Toggling flips the state; two toggles always return to the start.
type BookmarkRegistryService interface {
	// ToggleBookmark returns the state after the flip: true when the
	// bookmark now exists.
	ToggleBookmark(ctx context.Context, userID, questionID uuid.UUID) (bool, error)

	IsBookmarked(ctx context.Context, userID, questionID uuid.UUID) (bool, error)
	BookmarkedQuestions(ctx context.Context, userID uuid.UUID) ([]*types.Question, error)
}

type bookmarkRegistryService struct {
	db  *gorm.DB
	log *logger.Logger

	bookmarkRepo repos.QuestionBookmarkRepo
	questionRepo repos.QuestionRepo
}

func NewBookmarkRegistryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bookmarkRepo repos.QuestionBookmarkRepo,
	questionRepo repos.QuestionRepo,
) BookmarkRegistryService {
	return &bookmarkRegistryService{
		db:           db,
		log:          baseLog.With("service", "BookmarkRegistryService"),
		bookmarkRepo: bookmarkRepo,
		questionRepo: questionRepo,
	}
}

func (s *bookmarkRegistryService) ToggleBookmark(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, fmt.Errorf("%w: bookmarking requires identity", apierr.ErrUnauthorized)
	}
	if questionID == uuid.Nil {
		return false, fmt.Errorf("%w: question id is required", apierr.ErrValidation)
	}

	question, err := s.questionRepo.GetByID(ctx, nil, questionID)
	if err != nil {
		return false, fmt.Errorf("load question: %w", err)
	}
	if question == nil {
		return false, fmt.Errorf("%w: question %s", apierr.ErrNotFound, questionID)
	}

	exists, err := s.bookmarkRepo.Exists(ctx, nil, userID, questionID)
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}

	if !exists {
		bookmark := &types.QuestionBookmark{
			ID:         uuid.New(),
			UserID:     userID,
			QuestionID: questionID,
			CreatedAt:  time.Now(),
		}
		err := s.bookmarkRepo.Insert(ctx, nil, bookmark)
		if err == nil {
			return true, nil
		}
		// A concurrent toggle won the insert; this one flips it back off.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, derr := s.bookmarkRepo.Delete(ctx, nil, userID, questionID); derr != nil {
				return false, fmt.Errorf("delete bookmark: %w", derr)
			}
			return false, nil
		}
		return false, fmt.Errorf("insert bookmark: %w", err)
	}

	deleted, err := s.bookmarkRepo.Delete(ctx, nil, userID, questionID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	if !deleted {
		// A concurrent toggle removed it first; this one turns it back on.
		bookmark := &types.QuestionBookmark{
			ID:         uuid.New(),
			UserID:     userID,
			QuestionID: questionID,
			CreatedAt:  time.Now(),
		}
		if err := s.bookmarkRepo.Insert(ctx, nil, bookmark); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("insert bookmark: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (s *bookmarkRegistryService) IsBookmarked(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || questionID == uuid.Nil {
		return false, nil
	}
	return s.bookmarkRepo.Exists(ctx, nil, userID, questionID)
}

func (s *bookmarkRegistryService) BookmarkedQuestions(ctx context.Context, userID uuid.UUID) ([]*types.Question, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: listing bookmarks requires identity", apierr.ErrUnauthorized)
	}
	return s.bookmarkRepo.ListQuestionsByUser(ctx, nil, userID)
}
