package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/http/response"
)

type ConfigHandler struct{}

func NewConfigHandler() *ConfigHandler { return &ConfigHandler{} }

// GET /api/config/classification
func (h *ConfigHandler) GetClassification(c *gin.Context) {
	applicability := make(map[string][]string, len(domain.ApplicabilityCategories))
	for _, cat := range domain.ApplicabilityCategories {
		applicability[cat.Name] = cat.Types
	}
	themes := make(map[string][]string, len(domain.ThemeCategories))
	for _, cat := range domain.ThemeCategories {
		themes[cat.Name] = cat.Themes
	}
	response.RespondOK(c, gin.H{
		"applicability_categories": applicability,
		"themes":                   themes,
	})
}
