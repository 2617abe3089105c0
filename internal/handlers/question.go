package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/requestdata"
	"github.com/yungbote/doubtclear-backend/internal/services"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type QuestionHandler struct {
	log              *logger.Logger
	questionService  services.QuestionService
	lifecycleService services.QuestionLifecycleService
	bookmarkService  services.BookmarkRegistryService
}

func NewQuestionHandler(
	log *logger.Logger,
	questionService services.QuestionService,
	lifecycleService services.QuestionLifecycleService,
	bookmarkService services.BookmarkRegistryService,
) *QuestionHandler {
	return &QuestionHandler{
		log:              log.With("handler", "QuestionHandler"),
		questionService:  questionService,
		lifecycleService: lifecycleService,
		bookmarkService:  bookmarkService,
	}
}

func (h *QuestionHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var input services.CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	question, err := h.questionService.CreateQuestion(c.Request.Context(), rd.UserID, input)
	if err != nil {
		h.log.Error("Create question failed", "error", err, "user_id", rd.UserID)
		RespondDomainError(c, "create_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

func (h *QuestionHandler) List(c *gin.Context) {
	filter := repos.QuestionFilter{}
	if raw := c.Query("course_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
			return
		}
		filter.CourseID = &id
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = types.QuestionStatus(raw)
	}
	questions, err := h.questionService.GetQuestions(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("List questions failed", "error", err)
		RespondDomainError(c, "list_questions_failed", err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

func (h *QuestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	detail, err := h.questionService.GetQuestionByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, "get_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"question": detail})
}

func (h *QuestionHandler) Trending(c *gin.Context) {
	questions, err := h.questionService.TrendingQuestions(c.Request.Context(), 10)
	if err != nil {
		h.log.Error("Trending questions failed", "error", err)
		RespondDomainError(c, "trending_questions_failed", err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

func (h *QuestionHandler) IncrementViews(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	if err := h.questionService.IncrementViews(c.Request.Context(), id); err != nil {
		RespondDomainError(c, "increment_views_failed", err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

func (h *QuestionHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	if err := h.lifecycleService.Close(c.Request.Context(), id); err != nil {
		RespondDomainError(c, "close_question_failed", err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

func (h *QuestionHandler) ToggleBookmark(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	bookmarked, err := h.bookmarkService.ToggleBookmark(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondDomainError(c, "toggle_bookmark_failed", err)
		return
	}
	RespondOK(c, gin.H{"bookmarked": bookmarked})
}

func (h *QuestionHandler) Bookmarked(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	questions, err := h.bookmarkService.BookmarkedQuestions(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondDomainError(c, "list_bookmarks_failed", err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}
