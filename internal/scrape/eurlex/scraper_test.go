package eurlex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
)

const dailyViewHTML = `<!DOCTYPE html>
<html><body>
<div class="panel panel-default panelOjAba">
  <div class="panel-heading">
    <button>Règlements (2)</button>
  </div>
  <div class="container">
    <div class="row daily-view-row-spacing">
      <div class="col-md-2">32024R0001</div>
      <div class="col-md-7"><a href="/legal-content/FR/TXT/?uri=CELEX:32024R0001">Règlement (UE) 2024/1 de la Commission</a></div>
    </div>
  </div>
  <div class="container">
    <div class="row daily-view-row-spacing">
      <div class="col-md-2">32024R0002</div>
      <div class="col-md-7"><a href="/legal-content/FR/TXT/?uri=CELEX:32024R0002">Ce rectificatif ne concerne pas la version française</a></div>
    </div>
  </div>
  <div class="container">
    <div class="row daily-view-row-spacing">
      <div class="col-md-2">32024R0001</div>
      <div class="col-md-7"><a href="/legal-content/FR/TXT/?uri=CELEX:32024R0001">Règlement (UE) 2024/1 de la Commission (doublon)</a></div>
    </div>
  </div>
</div>
<div class="panel panel-default panelOjAba">
  <div class="panel-heading">
    <button>Décisions</button>
  </div>
  <div class="container">
    <div class="row daily-view-row-spacing">
      <div class="col-md-2">32024D0003</div>
      <div class="col-md-7"><a href="/legal-content/FR/TXT/?uri=CELEX:32024D0003">Décision (UE) 2024/3 du Conseil</a></div>
    </div>
  </div>
</div>
</body></html>`

const detailHTML = `<!DOCTYPE html>
<html><body>
<div class="abstract">Résumé officiel du règlement.</div>
<div id="PP4Contents">
  <p>LA COMMISSION EUROPÉENNE,</p>
  <p>vu le traité sur le fonctionnement de l'Union européenne,<sup>1</sup></p>
  <p>considérant ce qui suit: ( 1 ) Un premier considérant. A ADOPTÉ LE PRÉSENT RÈGLEMENT: Article 1 Objet.</p>
  <a href="#note1">note de bas de page</a>
</div>
</body></html>`

func newTestScraper(t *testing.T, baseURL string) *Scraper {
	t.Helper()
	log := logger.NewNop()
	store, err := repos.NewContentStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewContentStore: %v", err)
	}
	cfg := config.ScraperConfig{
		UserAgent:      "lexveille-test/1.0",
		RequestTimeout: 5 * time.Second,
		DetailDelay:    time.Millisecond,
		DayDelay:       0,
		EURLexBaseURL:  baseURL,
	}
	return NewScraper(cfg, store, log)
}

func newEURLexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oj/daily-view/L-series/default.html", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ojDate"); got != "15012024" {
			t.Errorf("ojDate = %q, want 15012024", got)
		}
		if got := r.URL.Query().Get("locale"); got != "fr" {
			t.Errorf("locale = %q, want fr", got)
		}
		w.Write([]byte(dailyViewHTML))
	})
	mux.HandleFunc("/legal-content/FR/TXT/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeDailyView(t *testing.T) {
	srv := newEURLexServer(t)
	s := newTestScraper(t, srv.URL)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	docs := s.ScrapeDailyView(context.Background(), domain.SeriesL, false, date)

	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2 (corrigendum and duplicate filtered)", len(docs))
	}

	first := docs[0]
	if first.ID != "32024R0001" {
		t.Errorf("ID = %q, want 32024R0001", first.ID)
	}
	if first.Typologie != "Règlements" {
		t.Errorf("Typologie = %q, want Règlements", first.Typologie)
	}
	if first.Source != domain.SourceEURLex {
		t.Errorf("Source = %q", first.Source)
	}
	if first.Language != "fr" {
		t.Errorf("Language = %q, want fr", first.Language)
	}
	if !strings.Contains(first.URL, "locale=fr") {
		t.Errorf("URL %q missing locale=fr", first.URL)
	}
	if !first.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", first.Date, date)
	}

	if docs[1].Typologie != "Décisions" {
		t.Errorf("second Typologie = %q, want Décisions", docs[1].Typologie)
	}
}

func TestScrapeDailyViewWithDetails(t *testing.T) {
	srv := newEURLexServer(t)
	s := newTestScraper(t, srv.URL)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	docs := s.ScrapeDailyView(context.Background(), domain.SeriesL, true, date)
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	doc := docs[0]
	if doc.Abstract != "Résumé officiel du règlement." {
		t.Errorf("Abstract = %q", doc.Abstract)
	}
	if doc.Content == "" {
		t.Fatal("Content path is empty")
	}
	data, err := os.ReadFile(doc.Content)
	if err != nil {
		t.Fatalf("reading content file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "note de bas de page") {
		t.Error("anchor text not skipped")
	}
	if !strings.HasPrefix(content, "LA COMMISSION EUROPÉENNE,") {
		t.Errorf("content does not start at boilerplate marker: %q", content[:min(len(content), 80)])
	}
	if filepath.Ext(doc.Content) != ".txt" {
		t.Errorf("content path %q is not a .txt file", doc.Content)
	}
}

func TestScrapeDateRange(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oj/daily-view/C-series/default.html", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(dailyViewHTML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestScraper(t, srv.URL)
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	docs := s.ScrapeDateRange(context.Background(), domain.SeriesC, false, from, to)

	if calls != 3 {
		t.Errorf("daily view fetched %d times, want 3", calls)
	}
	if len(docs) != 6 {
		t.Errorf("got %d documents, want 6", len(docs))
	}
}

func TestScrapeDateRangeSwapsBounds(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oj/daily-view/L-series/default.html", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("<html><body></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestScraper(t, srv.URL)
	from := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	s.ScrapeDateRange(context.Background(), domain.SeriesL, false, from, to)

	if calls != 3 {
		t.Errorf("daily view fetched %d times, want 3", calls)
	}
}

func TestScrapeDailyViewFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newTestScraper(t, srv.URL)
	docs := s.ScrapeDailyView(context.Background(), domain.SeriesL, false, time.Now())
	if len(docs) != 0 {
		t.Errorf("got %d documents, want 0", len(docs))
	}
}

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "boilerplate truncation",
			in:   "Journal officiel de l'Union européenne L 12 LA COMMISSION EUROPÉENNE, vu le traité",
			want: "LA COMMISSION EUROPÉENNE, vu le traité",
		},
		{
			name: "numbered points on own paragraphs",
			in:   "considérant ce qui suit: ( 1 ) Premier point. (2) Deuxième point.",
			want: "considérant ce qui suit:\n\n(1) Premier point.\n\n(2) Deuxième point.",
		},
		{
			name: "article heading breaks",
			in:   "conformément aux dispositions qui précèdent Article 5 Objet du règlement",
			want: "conformément aux dispositions qui précèdent\n\nArticle 5 Objet du règlement",
		},
		{
			name: "acronym parentheses glued",
			in:   "l'Agence (ABE) et le SEBC (Système européen)",
			want: "l'Agence (ABE) et le SEBC(Système européen)",
		},
		{
			name: "dashes start paragraphs",
			in:   "les mesures suivantes: — premièrement — deuxièmement",
			want: "les mesures suivantes:\n\n— premièrement\n\n— deuxièmement",
		},
		{
			name: "whitespace collapsed",
			in:   "un  texte\n\tavec   des espaces",
			want: "un texte avec des espaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanContent(tt.in); got != tt.want {
				t.Errorf("CleanContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
