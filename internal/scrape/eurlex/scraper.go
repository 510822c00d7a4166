// Package eurlex scrapes the EUR-Lex Official Journal daily view
// (French edition) for L and C series documents.
package eurlex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/pkg/htmlx"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
)

const corrigendumFilter = "rectificatif ne concerne pas la version française"

type Scraper struct {
	log        *logger.Logger
	store      *repos.ContentStore
	httpClient *http.Client
	baseURL    string
	userAgent  string
	// Paces detail-page fetches.
	limiter  *rate.Limiter
	dayDelay time.Duration
}

func NewScraper(cfg config.ScraperConfig, store *repos.ContentStore, log *logger.Logger) *Scraper {
	delay := cfg.DetailDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Scraper{
		log:        log.With("scraper", "EURLex"),
		store:      store,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.EURLexBaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		dayDelay:   cfg.DayDelay,
	}
}

func (s *Scraper) dailyViewURL(series domain.Series, date time.Time) string {
	path := "/oj/daily-view/L-series/default.html"
	if series == domain.SeriesC {
		path = "/oj/daily-view/C-series/default.html"
	}
	q := url.Values{}
	q.Set("ojDate", date.Format("02012006"))
	q.Set("sortCriterion", "BY_CATEGORY")
	q.Set("orderCriterion", "ASCENDING")
	q.Set("locale", "fr")
	return s.baseURL + path + "?" + q.Encode()
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return html.Parse(resp.Body)
}

// ScrapeDailyView returns the documents published on one day for one
// series. Failures degrade to an empty slice.
func (s *Scraper) ScrapeDailyView(ctx context.Context, series domain.Series, scrapeDetails bool, targetDate time.Time) []domain.Document {
	if targetDate.IsZero() {
		targetDate = time.Now()
	}
	s.log.Info("Scraping EUR-Lex daily view",
		"series", string(series),
		"date", targetDate.Format("2006-01-02"),
	)

	root, err := s.fetch(ctx, s.dailyViewURL(series, targetDate))
	if err != nil {
		s.log.Error("Daily view fetch failed",
			"series", string(series),
			"date", targetDate.Format("2006-01-02"),
			"error", err.Error(),
		)
		return nil
	}

	docs := s.parseDailyView(ctx, root, targetDate, series, scrapeDetails)
	s.log.Info("Daily view scraped", "series", string(series), "documents", len(docs))
	return docs
}

// ScrapeDateRange scrapes every day between from and to inclusive,
// pausing between days.
func (s *Scraper) ScrapeDateRange(ctx context.Context, series domain.Series, scrapeDetails bool, from, to time.Time) []domain.Document {
	if from.After(to) {
		from, to = to, from
	}
	days := int(to.Sub(from).Hours()/24) + 1
	s.log.Info("Scraping EUR-Lex date range",
		"series", string(series),
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
		"days", days,
	)

	var all []domain.Document
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		all = append(all, s.ScrapeDailyView(ctx, series, scrapeDetails, day)...)
		if day.Before(to) && s.dayDelay > 0 {
			select {
			case <-ctx.Done():
				return all
			case <-time.After(s.dayDelay):
			}
		}
	}
	s.log.Info("Date range scraped", "series", string(series), "documents", len(all))
	return all
}

func (s *Scraper) parseDailyView(ctx context.Context, root *html.Node, date time.Time, series domain.Series, scrapeDetails bool) []domain.Document {
	var docs []domain.Document
	seen := map[string]bool{}

	panels := htmlx.FindAll(root, func(n *html.Node) bool {
		return n.Data == "div" && htmlx.HasAllClasses(n, "panel", "panel-default", "panelOjAba")
	})
	for _, panel := range panels {
		typologie := extractTypologie(panel)
		for _, container := range htmlx.FindAllByClass(panel, "div", "container") {
			doc, ok := s.extractDocumentInfo(container, date, typologie)
			if !ok || seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true

			if scrapeDetails && doc.URL != "" {
				if err := s.limiter.Wait(ctx); err != nil {
					return docs
				}
				s.scrapeDocumentDetails(ctx, &doc, series)
			}
			docs = append(docs, doc)
		}
	}
	return docs
}

func extractTypologie(panel *html.Node) string {
	heading := htmlx.FindByClass(panel, "div", "panel-heading")
	if heading == nil {
		return ""
	}
	button := htmlx.Find(heading, func(n *html.Node) bool { return n.Data == "button" })
	if button == nil {
		return ""
	}
	text := htmlx.Text(button, " ")
	for _, typo := range domain.EURLexTypologies {
		if strings.Contains(text, typo) {
			return typo
		}
	}
	return ""
}

func (s *Scraper) extractDocumentInfo(container *html.Node, date time.Time, typologie string) (domain.Document, bool) {
	row := htmlx.Find(container, func(n *html.Node) bool {
		return n.Data == "div" && htmlx.HasAllClasses(n, "row", "daily-view-row-spacing")
	})
	if row == nil {
		return domain.Document{}, false
	}

	idDiv := htmlx.FindByClass(row, "div", "col-md-2")
	if idDiv == nil {
		return domain.Document{}, false
	}
	docID := strings.TrimSpace(htmlx.Text(idDiv, " "))
	if docID == "" {
		return domain.Document{}, false
	}

	linkDiv := htmlx.FindByClass(row, "div", "col-md-7")
	if linkDiv == nil {
		return domain.Document{}, false
	}
	link := htmlx.Find(linkDiv, func(n *html.Node) bool { return n.Data == "a" })
	if link == nil {
		return domain.Document{}, false
	}
	titre := strings.TrimSpace(htmlx.Text(link, " "))
	href := htmlx.Attr(link, "href")
	if href == "" {
		return domain.Document{}, false
	}

	// Corrigenda that do not touch the French edition are not tracked.
	if strings.Contains(strings.ToLower(titre), corrigendumFilter) {
		s.log.Info("Document skipped, corrigendum not relevant to the French edition", "document_id", docID)
		return domain.Document{}, false
	}

	docURL := s.resolveURL(href)
	if strings.Contains(docURL, "?") {
		docURL += "&locale=fr"
	} else {
		docURL += "?locale=fr"
	}

	return domain.Document{
		ID:        docID,
		Source:    domain.SourceEURLex,
		Date:      date,
		URL:       docURL,
		Typologie: typologie,
		Titre:     titre,
		Language:  "fr",
	}, true
}

func (s *Scraper) resolveURL(href string) string {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// scrapeDocumentDetails fills abstract and the content file path in
// place. On fetch failure the document stays metadata-only.
func (s *Scraper) scrapeDocumentDetails(ctx context.Context, doc *domain.Document, series domain.Series) {
	root, err := s.fetch(ctx, doc.URL)
	if err != nil {
		s.log.Error("Detail fetch failed", "document_id", doc.ID, "url", doc.URL, "error", err.Error())
		return
	}

	if abstractDiv := htmlx.FindByClass(root, "div", "abstract"); abstractDiv != nil {
		doc.Abstract = strings.TrimSpace(htmlx.Text(abstractDiv, " "))
	}

	contentDiv := htmlx.FindByID(root, "PP4Contents")
	if contentDiv == nil {
		return
	}

	// Footnote markers and links are noise in the extracted text.
	raw := htmlx.Text(contentDiv, "\n", "sup", "a")
	content := CleanContent(raw)

	path, err := s.store.SaveEURLex(series, doc.ID, content)
	if err != nil {
		s.log.Error("Failed to store content", "document_id", doc.ID, "error", err.Error())
		return
	}
	doc.Content = path
}
