package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
)

type CourseHandler struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
}

func NewCourseHandler(log *logger.Logger, courseRepo repos.CourseRepo) *CourseHandler {
	return &CourseHandler{
		log:        log.With("handler", "CourseHandler"),
		courseRepo: courseRepo,
	}
}

func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseRepo.List(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("List courses failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_courses_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

type createCourseRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		RespondError(c, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	now := time.Now()
	course := &types.Course{
		ID:        uuid.New(),
		Code:      req.Code,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := h.courseRepo.Create(c.Request.Context(), nil, []*types.Course{course}); err != nil {
		h.log.Error("Create course failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}
