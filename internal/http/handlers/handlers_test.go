package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
	"github.com/lexveille/lexveille-backend/internal/scrape/eurlex"
	"github.com/lexveille/lexveille-backend/internal/scrape/jorf"
	"github.com/lexveille/lexveille-backend/internal/services"
)

const testDailyViewHTML = `<!DOCTYPE html>
<html><body>
<div class="panel panel-default panelOjAba">
  <div class="panel-heading"><button>Actes législatifs</button></div>
  <div class="container">
    <div class="row daily-view-row-spacing">
      <div class="col-md-2">32024R0100</div>
      <div class="col-md-7"><a href="/legal-content/FR/TXT/?uri=CELEX:32024R0100">Règlement (UE) 2024/100</a></div>
    </div>
  </div>
</div>
</body></html>`

type stubLLM struct{ fail bool }

func (s *stubLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	if s.fail {
		return "", context.DeadlineExceeded
	}
	if strings.Contains(user, "Classification (catégorie/type):") {
		return "obligation/Règlement", nil
	}
	return "Résumé du document.", nil
}

func (s *stubLLM) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	if s.fail {
		return "", context.DeadlineExceeded
	}
	return `{"themes": ["Ventilation"], "reasoning": "r"}`, nil
}

func (s *stubLLM) CountTokens(text string) int { return len(text) / 4 }
func (s *stubLLM) SupportsJSONOutput() bool    { return true }

type fixture struct {
	repo   repos.DocumentRepo
	dir    string
	log    *logger.Logger
	router *gin.Engine
}

func newFixture(t *testing.T, eurlexBaseURL string, enrich *services.EnrichmentService) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	dir := t.TempDir()
	repo, err := repos.NewDocumentRepo(filepath.Join(dir, "legal_documents.csv"), log)
	if err != nil {
		t.Fatalf("NewDocumentRepo: %v", err)
	}
	store, err := repos.NewContentStore(filepath.Join(dir, "content"), log)
	if err != nil {
		t.Fatalf("NewContentStore: %v", err)
	}

	scraperCfg := config.ScraperConfig{
		UserAgent:      "lexveille-test/1.0",
		RequestTimeout: 5 * time.Second,
		DetailDelay:    time.Millisecond,
		EURLexBaseURL:  eurlexBaseURL,
	}
	scrapeSvc := services.NewScrapeService(
		repo,
		eurlex.NewScraper(scraperCfg, store, log),
		jorf.NewParser(scraperCfg, store, log),
		nil,
		log,
	)

	scrapeH := NewScrapeHandler(scrapeSvc, log)
	docH := NewDocumentHandler(repo, log)
	procH := NewProcessHandler(enrich, repo, log)
	statsH := NewStatsHandler(services.NewStatsService(repo, log))
	confH := NewConfigHandler()
	healthH := NewHealthHandler(enrich != nil)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/scrape/eurlex", scrapeH.ScrapeEURLex)
	api.POST("/scrape/eurlex/range", scrapeH.ScrapeEURLexRange)
	api.POST("/scrape/jorf", scrapeH.ScrapeJORF)
	api.GET("/documents", docH.List)
	api.GET("/documents/:id", docH.Get)
	api.POST("/documents/delete", docH.Delete)
	api.POST("/process/llm", procH.Process)
	api.POST("/process/llm/stream", procH.ProcessStream)
	api.GET("/stats", statsH.Get)
	api.GET("/config/classification", confH.GetClassification)
	api.GET("/health", healthH.HealthCheck)

	return &fixture{repo: repo, dir: dir, log: log, router: r}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return payload
}

func (f *fixture) seed(t *testing.T, docs ...domain.Document) {
	t.Helper()
	if created, _ := f.repo.BulkCreate(docs); created != len(docs) {
		t.Fatalf("seeded %d of %d documents", created, len(docs))
	}
}

func TestScrapeEURLexValidation(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)

	for _, target := range []string{
		"/api/scrape/eurlex",
		"/api/scrape/eurlex?series=X",
		"/api/scrape/eurlex?series=L&scrape_details=maybe",
		"/api/scrape/eurlex?series=L&target_date=15/01/2024",
	} {
		if w := f.do(t, http.MethodPost, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", target, w.Code)
		}
	}
}

func TestScrapeEURLex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testDailyViewHTML))
	}))
	defer srv.Close()
	f := newFixture(t, srv.URL, nil)

	w := f.do(t, http.MethodPost, "/api/scrape/eurlex?series=L&scrape_details=false&target_date=2024-01-15", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	payload := decode(t, w)
	if payload["documents_found"].(float64) != 1 || payload["documents_created"].(float64) != 1 {
		t.Errorf("payload = %v", payload)
	}

	// Rescraping the same day skips the existing document.
	w = f.do(t, http.MethodPost, "/api/scrape/eurlex?series=L&scrape_details=false&target_date=2024-01-15", "")
	payload = decode(t, w)
	if payload["documents_created"].(float64) != 0 || payload["documents_skipped"].(float64) != 1 {
		t.Errorf("second run payload = %v", payload)
	}
}

func TestScrapeEURLexRangeValidation(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)

	for _, target := range []string{
		"/api/scrape/eurlex/range?series=L",
		"/api/scrape/eurlex/range?series=L&date_from=2024-01-10&date_to=2024-01-05",
		"/api/scrape/eurlex/range?series=L&date_from=2024-01-01&date_to=2024-02-15",
	} {
		if w := f.do(t, http.MethodPost, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("POST %s = %d, want 400", target, w.Code)
		}
	}
}

func TestScrapeEURLexRange(t *testing.T) {
	var days int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		days++
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()
	f := newFixture(t, srv.URL, nil)

	w := f.do(t, http.MethodPost, "/api/scrape/eurlex/range?series=C&scrape_details=false&date_from=2024-01-15&date_to=2024-01-17", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	payload := decode(t, w)
	if payload["days_scraped"].(float64) != 3 {
		t.Errorf("days_scraped = %v", payload["days_scraped"])
	}
	if days != 3 {
		t.Errorf("daily view fetched %d times, want 3", days)
	}
}

func TestScrapeJORF(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)

	if w := f.do(t, http.MethodPost, "/api/scrape/jorf", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/scrape/jorf", `{"email_body": "rien"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["message"] != "No JORF documents found in email" {
		t.Errorf("message = %v", payload["message"])
	}
}

func TestDocumentsList(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	f.seed(t,
		domain.Document{ID: "1", Source: domain.SourceEURLex, Language: "fr", Typologie: "Actes législatifs", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		domain.Document{ID: "2", Source: domain.SourceJORF, Language: "fr", Typologie: domain.JORFDecret, Date: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)},
		domain.Document{ID: "3", Source: domain.SourceEURLex, Language: "fr", Typologie: "Communications", Date: time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)},
	)

	w := f.do(t, http.MethodGet, "/api/documents", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["total"].(float64) != 3 || payload["count"].(float64) != 3 {
		t.Errorf("payload = %v", payload)
	}

	w = f.do(t, http.MethodGet, "/api/documents?source=EURLEX", "")
	if payload = decode(t, w); payload["total"].(float64) != 2 {
		t.Errorf("source filter total = %v", payload["total"])
	}

	w = f.do(t, http.MethodGet, "/api/documents?date_from=2024-01-11&date_to=2024-01-13", "")
	if payload = decode(t, w); payload["total"].(float64) != 1 {
		t.Errorf("date filter total = %v", payload["total"])
	}

	w = f.do(t, http.MethodGet, "/api/documents?skip=2&limit=2", "")
	if payload = decode(t, w); payload["count"].(float64) != 1 {
		t.Errorf("paginated count = %v", payload["count"])
	}

	for _, target := range []string{
		"/api/documents?skip=-1",
		"/api/documents?limit=0",
		"/api/documents?limit=1001",
	} {
		if w := f.do(t, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", target, w.Code)
		}
	}
}

func TestDocumentGet(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	f.seed(t, domain.Document{ID: "doc-1", Source: domain.SourceEURLex, Titre: "Titre"})

	w := f.do(t, http.MethodGet, "/api/documents/doc-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["id"] != "doc-1" {
		t.Errorf("id = %v", payload["id"])
	}

	if w := f.do(t, http.MethodGet, "/api/documents/absent", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", w.Code)
	}
}

func TestDocumentsDelete(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	f.seed(t,
		domain.Document{ID: "doc-1", Source: domain.SourceEURLex},
		domain.Document{ID: "doc-2", Source: domain.SourceEURLex},
	)

	if w := f.do(t, http.MethodPost, "/api/documents/delete", `{"document_ids": []}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty ids status = %d, want 400", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/documents/delete", `{"document_ids": ["doc-1", "absent"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["deleted"].(float64) != 1 {
		t.Errorf("deleted = %v", payload["deleted"])
	}
}

func TestProcessUnavailable(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	if w := f.do(t, http.MethodPost, "/api/process/llm", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestProcess(t *testing.T) {
	log := logger.NewNop()
	dir := t.TempDir()
	repo, err := repos.NewDocumentRepo(filepath.Join(dir, "legal_documents.csv"), log)
	if err != nil {
		t.Fatalf("NewDocumentRepo: %v", err)
	}
	enrich := services.NewEnrichmentService(repo, &stubLLM{}, 0, log)

	f := newFixture(t, "http://invalid.local", enrich)
	contentPath := filepath.Join(dir, "doc-1.txt")
	if err := os.WriteFile(contentPath, []byte("contenu"), 0o644); err != nil {
		t.Fatalf("writing content: %v", err)
	}
	if _, err := repo.Create(domain.Document{ID: "doc-1", Source: domain.SourceEURLex, Titre: "T", Content: contentPath}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if w := f.do(t, http.MethodPost, "/api/process/llm?batch_size=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("batch_size=0 status = %d, want 400", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/process/llm", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	payload := decode(t, w)
	if payload["status"] != "success" || payload["processed"].(float64) != 1 {
		t.Errorf("payload = %v", payload)
	}
}

func TestProcessStreamUnavailable(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	w := f.do(t, http.MethodPost, "/api/process/llm/stream", "")
	if !strings.Contains(w.Body.String(), "event: error") {
		t.Errorf("body = %q, want an error event", w.Body.String())
	}
}

func TestProcessStream(t *testing.T) {
	log := logger.NewNop()
	dir := t.TempDir()
	repo, err := repos.NewDocumentRepo(filepath.Join(dir, "legal_documents.csv"), log)
	if err != nil {
		t.Fatalf("NewDocumentRepo: %v", err)
	}
	enrich := services.NewEnrichmentService(repo, &stubLLM{}, 0, log)

	contentPath := filepath.Join(dir, "doc-1.txt")
	if err := os.WriteFile(contentPath, []byte("contenu"), 0o644); err != nil {
		t.Fatalf("writing content: %v", err)
	}
	if _, err := repo.Create(domain.Document{ID: "doc-1", Source: domain.SourceEURLex, Titre: "T", Content: contentPath}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/process/llm/stream", NewProcessHandler(enrich, repo, log).ProcessStream)

	req := httptest.NewRequest(http.MethodPost, "/api/process/llm/stream", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, event := range []string{"event: start", "event: document_start", "event: document_complete", "event: complete"} {
		if !strings.Contains(body, event) {
			t.Errorf("body missing %q:\n%s", event, body)
		}
	}
	if !strings.Contains(body, `"percentage":100`) {
		t.Errorf("body missing 100%% progress:\n%s", body)
	}
}

func TestProcessStreamEmpty(t *testing.T) {
	log := logger.NewNop()
	dir := t.TempDir()
	repo, err := repos.NewDocumentRepo(filepath.Join(dir, "legal_documents.csv"), log)
	if err != nil {
		t.Fatalf("NewDocumentRepo: %v", err)
	}
	enrich := services.NewEnrichmentService(repo, &stubLLM{}, 0, log)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/process/llm/stream", NewProcessHandler(enrich, repo, log).ProcessStream)

	req := httptest.NewRequest(http.MethodPost, "/api/process/llm/stream", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "No pending documents") || !strings.Contains(body, "event: complete") {
		t.Errorf("body = %q", body)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)
	f.seed(t,
		domain.Document{ID: "1", Source: domain.SourceEURLex, Language: "fr"},
		domain.Document{ID: "2", Source: domain.SourceJORF, Language: "fr"},
	)

	w := f.do(t, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["total_documents"].(float64) != 2 {
		t.Errorf("total_documents = %v", payload["total_documents"])
	}
	bySource := payload["by_source"].(map[string]any)
	if bySource["EURLEX"].(float64) != 1 || bySource["JORF"].(float64) != 1 {
		t.Errorf("by_source = %v", bySource)
	}
}

func TestConfigClassification(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)

	w := f.do(t, http.MethodGet, "/api/config/classification", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)

	applicability := payload["applicability_categories"].(map[string]any)
	if len(applicability["obligation"].([]any)) != 5 {
		t.Errorf("obligation types = %v", applicability["obligation"])
	}
	themes := payload["themes"].(map[string]any)
	if _, ok := themes["Risques chimiques"]; !ok {
		t.Error("themes missing Risques chimiques")
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "http://invalid.local", nil)

	w := f.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	payload := decode(t, w)
	if payload["status"] != "healthy" {
		t.Errorf("status = %v", payload["status"])
	}
	if payload["llm_enabled"] != false {
		t.Errorf("llm_enabled = %v", payload["llm_enabled"])
	}
}
