package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/requestdata"
	"github.com/yungbote/doubtclear-backend/internal/services"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type AnswerHandler struct {
	log              *logger.Logger
	lifecycleService services.QuestionLifecycleService
	voteService      services.VoteLedgerService
}

func NewAnswerHandler(
	log *logger.Logger,
	lifecycleService services.QuestionLifecycleService,
	voteService services.VoteLedgerService,
) *AnswerHandler {
	return &AnswerHandler{
		log:              log.With("handler", "AnswerHandler"),
		lifecycleService: lifecycleService,
		voteService:      voteService,
	}
}

type createAnswerRequest struct {
	Content string `json:"content"`
}

func (h *AnswerHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	var req createAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	answer, err := h.lifecycleService.RecordHumanAnswer(c.Request.Context(), questionID, rd.UserID, req.Content)
	if err != nil {
		h.log.Error("Create answer failed", "error", err, "question_id", questionID)
		RespondDomainError(c, "create_answer_failed", err)
		return
	}
	RespondOK(c, gin.H{"answer": answer})
}

type castVoteRequest struct {
	VoteType string `json:"vote_type"`
}

func (h *AnswerHandler) CastVote(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	answerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_answer_id", err)
		return
	}
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.voteService.CastVote(c.Request.Context(), rd.UserID, answerID, types.VoteType(req.VoteType))
	if err != nil {
		RespondDomainError(c, "cast_vote_failed", err)
		return
	}
	RespondOK(c, gin.H{"vote": result})
}

func (h *AnswerHandler) Accept(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	answerID, err := uuid.Parse(c.Param("answerId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_answer_id", err)
		return
	}
	if err := h.lifecycleService.AcceptAnswer(c.Request.Context(), questionID, answerID, rd.UserID); err != nil {
		RespondDomainError(c, "accept_answer_failed", err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}
