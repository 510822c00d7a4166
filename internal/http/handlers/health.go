package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/http/response"
)

type HealthHandler struct {
	llmEnabled bool
}

func NewHealthHandler(llmEnabled bool) *HealthHandler {
	return &HealthHandler{llmEnabled: llmEnabled}
}

// GET /api/health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"llm_enabled": h.llmEnabled,
	})
}
