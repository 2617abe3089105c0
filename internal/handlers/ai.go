package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/services"
)

// AIHandler exposes the optional writing-assist endpoints backed by the
// generative provider. All of them degrade to 502 when unconfigured.
type AIHandler struct {
	log *logger.Logger
	ai  services.GenerativeClient
}

func NewAIHandler(log *logger.Logger, ai services.GenerativeClient) *AIHandler {
	return &AIHandler{
		log: log.With("handler", "AIHandler"),
		ai:  ai,
	}
}

type aiQuestionRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CourseName string `json:"course_name"`
}

func (h *AIHandler) ImproveQuestion(c *gin.Context) {
	var req aiQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	improvement, err := h.ai.ImproveQuestion(c.Request.Context(), req.Title, req.Content, req.CourseName)
	if err != nil {
		h.log.Error("ImproveQuestion failed", "error", err)
		RespondDomainError(c, "improve_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"improvement": improvement})
}

func (h *AIHandler) SimilarQuestions(c *gin.Context) {
	var req aiQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	similar, err := h.ai.SuggestSimilarQuestions(c.Request.Context(), req.Title, req.CourseName)
	if err != nil {
		RespondDomainError(c, "similar_questions_failed", err)
		return
	}
	RespondOK(c, gin.H{"questions": similar})
}

type aiQualityRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *AIHandler) AnswerQuality(c *gin.Context) {
	var req aiQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	report, err := h.ai.AnalyzeAnswerQuality(c.Request.Context(), req.Question, req.Answer)
	if err != nil {
		RespondDomainError(c, "answer_quality_failed", err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

// AnswerPreview streams a draft AI answer as server-sent events. Nothing is
// persisted; the fallback worker owns real AI answers.
func (h *AIHandler) AnswerPreview(c *gin.Context) {
	var req aiQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	err := h.ai.StreamAnswer(c.Request.Context(), req.Title, req.Content, req.CourseName, func(chunk string) {
		fmt.Fprintf(c.Writer, "data: %s\n\n", chunk)
		c.Writer.Flush()
	})
	if err != nil {
		h.log.Error("AnswerPreview stream failed", "error", err)
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", err.Error())
		c.Writer.Flush()
		return
	}
	fmt.Fprint(c.Writer, "event: done\ndata: \n\n")
	c.Writer.Flush()
}
