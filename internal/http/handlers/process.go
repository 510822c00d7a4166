package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/http/response"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
	"github.com/lexveille/lexveille-backend/internal/services"
)

const streamEventDelay = 100 * time.Millisecond

// ProcessingStatus is the response payload for enrichment operations.
type ProcessingStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// ProcessHandler drives the LLM enrichment pipeline. The enrichment
// service is nil when LLM processing is disabled.
type ProcessHandler struct {
	enrich *services.EnrichmentService
	repo   repos.DocumentRepo
	log    *logger.Logger
}

func NewProcessHandler(enrich *services.EnrichmentService, repo repos.DocumentRepo, log *logger.Logger) *ProcessHandler {
	return &ProcessHandler{enrich: enrich, repo: repo, log: log.With("handler", "process")}
}

func parseBatchSize(c *gin.Context) (int, error) {
	batchSize, err := strconv.Atoi(c.DefaultQuery("batch_size", "10"))
	if err != nil || batchSize < 1 || batchSize > 100 {
		return 0, errors.New("batch_size must be between 1 and 100")
	}
	return batchSize, nil
}

// POST /api/process/llm
func (h *ProcessHandler) Process(c *gin.Context) {
	batchSize, err := parseBatchSize(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch_size", err)
		return
	}
	if h.enrich == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "llm_unavailable",
			errors.New("LLM processing is not available, check LLM_ENABLED configuration"))
		return
	}

	stats, err := h.enrich.ProcessBatch(c.Request.Context(), batchSize)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "llm_processing_failed", err)
		return
	}
	response.RespondOK(c, ProcessingStatus{
		Status:    "success",
		Message:   fmt.Sprintf("Batch processing completed (%d documents)", stats.Processed+stats.Failed),
		Processed: stats.Processed,
		Failed:    stats.Failed,
		Skipped:   stats.Skipped,
	})
}

func percentage(current, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(current)/float64(total)*10000) / 100
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 100 {
		return title
	}
	return string(runes[:100])
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// POST /api/process/llm/stream
//
// Streams per-document progress as Server-Sent Events while a batch is
// being enriched.
func (h *ProcessHandler) ProcessStream(c *gin.Context) {
	batchSize, err := parseBatchSize(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch_size", err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", errors.New("streaming not supported"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	if h.enrich == nil {
		writeEvent(c, flusher, "error", gin.H{"error": "LLM processing not available"})
		return
	}

	pending, err := h.repo.GetPendingForProcessing(batchSize)
	if err != nil {
		writeEvent(c, flusher, "error", gin.H{"error": err.Error()})
		return
	}
	if len(pending) == 0 {
		writeEvent(c, flusher, "start", gin.H{"message": "No pending documents", "total": 0})
		writeEvent(c, flusher, "complete", gin.H{"processed": 0, "failed": 0, "skipped": 0})
		return
	}

	total := len(pending)
	var stats services.BatchStats

	writeEvent(c, flusher, "start", gin.H{"message": "Processing started", "total": total})
	time.Sleep(streamEventDelay)

	ctx := c.Request.Context()
	for i, doc := range pending {
		current := i + 1
		title := truncateTitle(doc.Titre)

		writeEvent(c, flusher, "document_start", gin.H{
			"document_id":    doc.ID,
			"document_title": title,
			"current":        current,
			"total":          total,
			"percentage":     percentage(current, total),
		})

		if err := h.enrich.ProcessDocument(ctx, doc.ID); err != nil {
			stats.Failed++
			writeEvent(c, flusher, "document_error", gin.H{
				"document_id":    doc.ID,
				"document_title": title,
				"current":        current,
				"total":          total,
				"percentage":     percentage(current, total),
				"error":          err.Error(),
			})
			time.Sleep(streamEventDelay)
			continue
		}
		stats.Processed++

		updated, _ := h.repo.GetByID(doc.ID)
		event := gin.H{
			"document_id":    doc.ID,
			"document_title": title,
			"current":        current,
			"total":          total,
			"percentage":     percentage(current, total),
		}
		if updated != nil {
			event["applicability"] = updated.Applicability
			event["themes"] = updated.Themes
			event["summary_length"] = len(updated.Summary)
		}
		writeEvent(c, flusher, "document_complete", event)
		time.Sleep(streamEventDelay)
	}

	writeEvent(c, flusher, "complete", gin.H{
		"processed": stats.Processed,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
		"total":     total,
	})
}
