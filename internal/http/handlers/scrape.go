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
	"github.com/lexveille/lexveille-backend/internal/services"
)

const maxRangeDays = 30

// ScrapingStatus is the response payload for scraping operations.
type ScrapingStatus struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	DocumentsFound   int    `json:"documents_found"`
	DocumentsCreated int    `json:"documents_created"`
	DocumentsSkipped int    `json:"documents_skipped"`
}

type DateRangeScrapingStatus struct {
	ScrapingStatus
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	DaysScraped int    `json:"days_scraped"`
}

type ScrapeHandler struct {
	scrape *services.ScrapeService
	log    *logger.Logger
}

func NewScrapeHandler(scrape *services.ScrapeService, log *logger.Logger) *ScrapeHandler {
	return &ScrapeHandler{scrape: scrape, log: log.With("handler", "scrape")}
}

func parseScrapeDetails(c *gin.Context) (bool, error) {
	raw := c.DefaultQuery("scrape_details", "true")
	return strconv.ParseBool(raw)
}

// POST /api/scrape/eurlex
func (h *ScrapeHandler) ScrapeEURLex(c *gin.Context) {
	series, err := domain.ParseSeries(c.Query("series"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_series", err)
		return
	}
	scrapeDetails, err := parseScrapeDetails(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scrape_details", err)
		return
	}

	targetDate := time.Now()
	if raw := c.Query("target_date"); raw != "" {
		targetDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_target_date", errors.New("target_date must use the YYYY-MM-DD format"))
			return
		}
	}

	report := h.scrape.ScrapeEURLexDay(c.Request.Context(), series, scrapeDetails, targetDate)
	display := targetDate.Format("2006-01-02")
	if report.Found == 0 {
		response.RespondOK(c, ScrapingStatus{
			Status:  "success",
			Message: fmt.Sprintf("No new documents found for EUR-Lex %s-Series on %s", series, display),
		})
		return
	}
	response.RespondOK(c, ScrapingStatus{
		Status:           "success",
		Message:          fmt.Sprintf("EUR-Lex %s-Series scraping completed for %s", series, display),
		DocumentsFound:   report.Found,
		DocumentsCreated: report.Created,
		DocumentsSkipped: report.Skipped,
	})
}

// POST /api/scrape/eurlex/range
func (h *ScrapeHandler) ScrapeEURLexRange(c *gin.Context) {
	series, err := domain.ParseSeries(c.Query("series"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_series", err)
		return
	}
	scrapeDetails, err := parseScrapeDetails(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scrape_details", err)
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("date_from"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_date_from", errors.New("date_from must use the YYYY-MM-DD format"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("date_to"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_date_to", errors.New("date_to must use the YYYY-MM-DD format"))
		return
	}
	if from.After(to) {
		response.RespondError(c, http.StatusBadRequest, "invalid_date_range", errors.New("date_from must be before or equal to date_to"))
		return
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > maxRangeDays {
		response.RespondError(c, http.StatusBadRequest, "date_range_too_large",
			fmt.Errorf("date range too large (%d days), maximum is %d days", days, maxRangeDays))
		return
	}

	report := h.scrape.ScrapeEURLexRange(c.Request.Context(), series, scrapeDetails, from, to)
	response.RespondOK(c, DateRangeScrapingStatus{
		ScrapingStatus: ScrapingStatus{
			Status:           "success",
			Message:          fmt.Sprintf("EUR-Lex %s-Series scraping completed", series),
			DocumentsFound:   report.Found,
			DocumentsCreated: report.Created,
			DocumentsSkipped: report.Skipped,
		},
		DateFrom:    from.Format("2006-01-02"),
		DateTo:      to.Format("2006-01-02"),
		DaysScraped: days,
	})
}

type jorfEmailRequest struct {
	EmailBody string `json:"email_body" binding:"required"`
}

// POST /api/scrape/jorf
func (h *ScrapeHandler) ScrapeJORF(c *gin.Context) {
	var req jorfEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	report := h.scrape.ScrapeJORFEmail(c.Request.Context(), req.EmailBody)
	if report.Found == 0 {
		response.RespondOK(c, ScrapingStatus{
			Status:  "success",
			Message: "No JORF documents found in email",
		})
		return
	}
	response.RespondOK(c, ScrapingStatus{
		Status:           "success",
		Message:          "JORF email parsing completed",
		DocumentsFound:   report.Found,
		DocumentsCreated: report.Created,
		DocumentsSkipped: report.Skipped,
	})
}
