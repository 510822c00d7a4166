package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/http/response"
	"github.com/lexveille/lexveille-backend/internal/services"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GET /api/stats
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.stats.Collect()
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	response.RespondOK(c, stats)
}
