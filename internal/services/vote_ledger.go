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

// VoteResult reports the caller's vote state after a cast plus the answer's
// refreshed counters.
type VoteResult struct {
	Voted     bool           `json:"voted"`
	VoteType  types.VoteType `json:"vote_type,omitempty"`
	Upvotes   int64          `json:"upvotes"`
	Downvotes int64          `json:"downvotes"`
}

// VoteLedgerService maintains at most one vote row per (user, answer).
// Casting the same type twice removes the vote; casting the opposite type
// switches it in place.
type VoteLedgerService interface {
	CastVote(ctx context.Context, userID, answerID uuid.UUID, voteType types.VoteType) (*VoteResult, error)
}

type voteLedgerService struct {
	db  *gorm.DB
	log *logger.Logger

	voteRepo       repos.AnswerVoteRepo
	answerRepo     repos.AnswerRepo
	pointEventRepo repos.PointEventRepo
}

func NewVoteLedgerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	voteRepo repos.AnswerVoteRepo,
	answerRepo repos.AnswerRepo,
	pointEventRepo repos.PointEventRepo,
) VoteLedgerService {
	return &voteLedgerService{
		db:             db,
		log:            baseLog.With("service", "VoteLedgerService"),
		voteRepo:       voteRepo,
		answerRepo:     answerRepo,
		pointEventRepo: pointEventRepo,
	}
}

func (s *voteLedgerService) CastVote(ctx context.Context, userID, answerID uuid.UUID, voteType types.VoteType) (*VoteResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: voting requires identity", apierr.ErrUnauthorized)
	}
	if answerID == uuid.Nil {
		return nil, fmt.Errorf("%w: answer id is required", apierr.ErrValidation)
	}
	if voteType != types.VoteTypeUp && voteType != types.VoteTypeDown {
		return nil, fmt.Errorf("%w: vote type must be up or down", apierr.ErrValidation)
	}

	answer, err := s.answerRepo.GetByID(ctx, nil, answerID)
	if err != nil {
		return nil, fmt.Errorf("load answer: %w", err)
	}
	if answer == nil {
		return nil, fmt.Errorf("%w: answer %s", apierr.ErrNotFound, answerID)
	}
	if answer.Author.IsAI() {
		return nil, fmt.Errorf("%w: votes on ai answers are not allowed", apierr.ErrValidation)
	}

	var result *VoteResult
	// A unique index on (user_id, answer_id) backstops the read-then-insert.
	// When two casts race, the loser hits the duplicate key and retries once;
	// the second pass sees the winner's row and resolves as toggle or switch.
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.castOnce(ctx, userID, answer, voteType)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		break
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: concurrent vote", apierr.ErrConflict)
		}
		return nil, err
	}

	fresh, err := s.answerRepo.GetByID(ctx, nil, answerID)
	if err == nil && fresh != nil {
		result.Upvotes = fresh.Upvotes
		result.Downvotes = fresh.Downvotes
	}
	return result, nil
}

func (s *voteLedgerService) castOnce(ctx context.Context, userID uuid.UUID, answer *types.Answer, voteType types.VoteType) (*VoteResult, error) {
	result := &VoteResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.voteRepo.GetByUserAndAnswer(ctx, tx, userID, answer.ID)
		if err != nil {
			return fmt.Errorf("load vote: %w", err)
		}

		switch {
		case existing == nil:
			vote := &types.AnswerVote{
				ID:        uuid.New(),
				UserID:    userID,
				AnswerID:  answer.ID,
				VoteType:  voteType,
				CreatedAt: time.Now(),
			}
			if err := s.voteRepo.Insert(ctx, tx, vote); err != nil {
				return err
			}
			if err := s.applyDelta(ctx, tx, answer.ID, voteType, 1); err != nil {
				return err
			}
			if voteType == types.VoteTypeUp {
				if err := s.awardVotePoints(ctx, tx, answer, PointsAnswerUpvoted); err != nil {
					return err
				}
			}
			result.Voted = true
			result.VoteType = voteType

		case existing.VoteType == voteType:
			// Same type again: toggle off.
			deleted, err := s.voteRepo.Delete(ctx, tx, userID, answer.ID)
			if err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			if deleted {
				if err := s.applyDelta(ctx, tx, answer.ID, voteType, -1); err != nil {
					return err
				}
				if voteType == types.VoteTypeUp {
					if err := s.awardVotePoints(ctx, tx, answer, -PointsAnswerUpvoted); err != nil {
						return err
					}
				}
			}
			result.Voted = false

		default:
			// Opposite type: switch in place.
			if err := s.voteRepo.UpdateType(ctx, tx, userID, answer.ID, voteType); err != nil {
				return fmt.Errorf("update vote: %w", err)
			}
			if err := s.applyDelta(ctx, tx, answer.ID, existing.VoteType, -1); err != nil {
				return err
			}
			if err := s.applyDelta(ctx, tx, answer.ID, voteType, 1); err != nil {
				return err
			}
			delta := -PointsAnswerUpvoted
			if voteType == types.VoteTypeUp {
				delta = PointsAnswerUpvoted
			}
			if err := s.awardVotePoints(ctx, tx, answer, delta); err != nil {
				return err
			}
			result.Voted = true
			result.VoteType = voteType
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *voteLedgerService) applyDelta(ctx context.Context, tx *gorm.DB, answerID uuid.UUID, voteType types.VoteType, delta int) error {
	var up, down int
	if voteType == types.VoteTypeUp {
		up = delta
	} else {
		down = delta
	}
	if err := s.answerRepo.ApplyVoteDelta(ctx, tx, answerID, up, down); err != nil {
		return fmt.Errorf("apply vote delta: %w", err)
	}
	return nil
}

// awardVotePoints records a signed upvote event for the answer author. The
// ledger stays append-only: removals are compensating events, not deletes.
func (s *voteLedgerService) awardVotePoints(ctx context.Context, tx *gorm.DB, answer *types.Answer, points int64) error {
	if answer.Author.UserID == nil {
		return nil
	}
	event := &types.PointEvent{
		ID:         uuid.New(),
		UserID:     *answer.Author.UserID,
		EventType:  types.PointEventAnswerUpvoted,
		Points:     points,
		QuestionID: &answer.QuestionID,
		AnswerID:   &answer.ID,
		CreatedAt:  time.Now(),
	}
	if _, err := s.pointEventRepo.Create(ctx, tx, []*types.PointEvent{event}); err != nil {
		return fmt.Errorf("create point event: %w", err)
	}
	return nil
}
