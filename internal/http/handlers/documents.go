package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/http/response"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
)

type DocumentHandler struct {
	repo repos.DocumentRepo
	log  *logger.Logger
}

func NewDocumentHandler(repo repos.DocumentRepo, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{repo: repo, log: log.With("handler", "documents")}
}

type documentFilter struct {
	source           string
	typologie        string
	language         string
	processingStatus string
	dateFrom         time.Time
	dateTo           time.Time
}

func (f documentFilter) matches(doc domain.Document) bool {
	if f.source != "" && string(doc.Source) != f.source {
		return false
	}
	if f.typologie != "" && doc.Typologie != f.typologie {
		return false
	}
	if f.language != "" && doc.Language != f.language {
		return false
	}
	if f.processingStatus != "" && string(doc.ProcessingStatus) != f.processingStatus {
		return false
	}
	if !f.dateFrom.IsZero() && (doc.Date.IsZero() || doc.Date.Before(f.dateFrom)) {
		return false
	}
	if !f.dateTo.IsZero() && (doc.Date.IsZero() || doc.Date.After(f.dateTo)) {
		return false
	}
	return true
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_skip", errors.New("skip must be a non-negative integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be between 1 and 1000"))
		return
	}

	filter := documentFilter{
		source:           c.Query("source"),
		typologie:        c.Query("typologie"),
		language:         c.Query("language"),
		processingStatus: c.Query("processing_status"),
	}
	// Malformed date filters are ignored rather than rejected.
	if raw := c.Query("date_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.dateFrom = t
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.dateTo = t
		}
	}

	docs, err := h.repo.GetAll(0, 0)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "documents_read_failed", err)
		return
	}

	filtered := docs[:0:0]
	for _, doc := range docs {
		if filter.matches(doc) {
			filtered = append(filtered, doc)
		}
	}

	page := filtered
	if skip >= len(page) {
		page = nil
	} else {
		page = page[skip:]
		if len(page) > limit {
			page = page[:limit]
		}
	}
	if page == nil {
		page = []domain.Document{}
	}

	response.RespondOK(c, gin.H{
		"total":     len(filtered),
		"skip":      skip,
		"limit":     limit,
		"count":     len(page),
		"documents": page,
	})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.repo.GetByID(id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "document_read_failed", err)
		return
	}
	if doc == nil {
		response.RespondError(c, http.StatusNotFound, "document_not_found", fmt.Errorf("document %s not found", id))
		return
	}
	response.RespondOK(c, doc)
}

type deleteDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

// POST /api/documents/delete
func (h *DocumentHandler) Delete(c *gin.Context) {
	var req deleteDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if len(req.DocumentIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_document_ids", errors.New("no document IDs provided"))
		return
	}

	deleted, err := h.repo.DeleteDocuments(req.DocumentIDs)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	h.log.Info("Documents deleted", "deleted", deleted)
	response.RespondOK(c, gin.H{"status": "success", "deleted": deleted})
}
