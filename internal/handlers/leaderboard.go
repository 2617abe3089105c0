package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/requestdata"
	"github.com/yungbote/doubtclear-backend/internal/services"
)

type LeaderboardHandler struct {
	log            *logger.Logger
	rankingService services.RankingService
}

func NewLeaderboardHandler(log *logger.Logger, rankingService services.RankingService) *LeaderboardHandler {
	return &LeaderboardHandler{
		log:            log.With("handler", "LeaderboardHandler"),
		rankingService: rankingService,
	}
}

func (h *LeaderboardHandler) Leaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", services.LeaderboardPeriodAll)
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	entries, err := h.rankingService.Leaderboard(c.Request.Context(), period, limit)
	if err != nil {
		h.log.Error("Leaderboard failed", "error", err, "period", period)
		RespondDomainError(c, "leaderboard_failed", err)
		return
	}
	RespondOK(c, gin.H{"leaderboard": entries, "period": period})
}

func (h *LeaderboardHandler) MyActivity(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	events, err := h.rankingService.RecentActivity(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondDomainError(c, "user_activity_failed", err)
		return
	}
	RespondOK(c, gin.H{"activity": events})
}

func (h *LeaderboardHandler) MyStats(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	stats, err := h.rankingService.UserStats(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondDomainError(c, "user_stats_failed", err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}
