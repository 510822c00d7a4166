// Package jorf parses JORF (Journal officiel "Lois et décrets")
// e-mail notifications and fetches the referenced Légifrance pages.
package jorf

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
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

var (
	acteRe      = regexp.MustCompile(`^\s*(\d+)\s*(.+)$`)
	linkRe      = regexp.MustCompile(`(?i)^\s*(https://www\.legifrance\.gouv\.fr/jorf/id/(JORFTEXT\d+))`)
	ministereRe = regexp.MustCompile(`^\s*MINISTERE DE (.*)`)
	rubriqueRe  = regexp.MustCompile(`^\s*(PREMIER MINISTRE|COUR DES COMPTES|AUTORITE DE CONTROLE PRUDENTIEL ET DE RESOLUTION|COMMISSION NATIONALE DES COMPTES DE CAMPAGNE ET DES FINANCEMENTS POLITIQUES|INFORMATIONS PARLEMENTAIRES|AVIS ET COMMUNICATIONS|ANNONCES)\s*$`)
	inlineWsRe  = regexp.MustCompile(`[\t ]+`)
)

// Section headers that open a new rubrique in the table of contents.
var rubriqueHeaders = []string{
	"DECRETS, ARRETES, CIRCULAIRES",
	"MESURES NOMINATIVES",
	"CONVENTIONS COLLECTIVES",
	"AVIS ET COMMUNICATIONS",
	"ANNONCES",
}

type Parser struct {
	log        *logger.Logger
	store      *repos.ContentStore
	httpClient *http.Client
	userAgent  string
	// Paces Légifrance page fetches.
	limiter *rate.Limiter
	now     func() time.Time
}

func NewParser(cfg config.ScraperConfig, store *repos.ContentStore, log *logger.Logger) *Parser {
	delay := cfg.DetailDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Parser{
		log:        log.With("scraper", "JORF"),
		store:      store,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		now:        time.Now,
	}
}

// Parse walks the e-mail body line by line, tracking the current
// rubrique and ministère, and emits one document per acte whose next
// line carries a Légifrance link.
func (p *Parser) Parse(ctx context.Context, emailBody string) []domain.Document {
	p.log.Info("Parsing JORF email notification")

	body := inlineWsRe.ReplaceAllString(emailBody, " ")
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if strings.Contains(line, "JOURNAL OFFICIEL") && strings.Contains(line, "LOIS ET DECRETS") {
			start = i
			break
		}
	}
	if start == -1 {
		p.log.Error("JORF content start marker not found")
		return nil
	}

	var docs []domain.Document
	var ministere, rubrique string

	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if header := matchRubriqueHeader(line); header != "" {
			rubrique = header
			ministere = ""
			continue
		}

		if m := ministereRe.FindStringSubmatch(line); m != nil {
			ministere = strings.TrimSpace(m[1])
			continue
		}
		if m := rubriqueRe.FindStringSubmatch(line); m != nil {
			ministere = strings.TrimSpace(m[1])
			continue
		}

		acte := acteRe.FindStringSubmatch(line)
		if acte == nil || i+1 >= len(lines) {
			continue
		}
		link := linkRe.FindStringSubmatch(strings.TrimSpace(lines[i+1]))
		if link == nil {
			continue
		}

		numero := strings.TrimSpace(acte[1])
		titre := strings.TrimSpace(acte[2])
		url := strings.TrimSpace(link[1])

		ministre := ministere
		if ministre == "" {
			ministre = rubrique
		}
		if ministre == "" {
			ministre = domain.JORFAutre
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return docs
		}
		contentPath := p.scrapeArticleContent(ctx, numero, url)

		docs = append(docs, domain.Document{
			ID:        numero,
			Source:    domain.SourceJORF,
			Date:      p.now(),
			URL:       url,
			Typologie: determineTypology(titre),
			Ministre:  ministre,
			Titre:     titre,
			Abstract:  titre,
			Content:   contentPath,
			Language:  "fr",
		})
	}

	p.log.Info("JORF email parsed", "documents", len(docs))
	return docs
}

func matchRubriqueHeader(line string) string {
	for _, h := range rubriqueHeaders {
		if strings.Contains(line, h) {
			return strings.TrimSpace(strings.SplitN(line, ",", 2)[0])
		}
	}
	return ""
}

func determineTypology(titre string) string {
	for _, typo := range []string{
		domain.JORFDecret,
		domain.JORFArrete,
		domain.JORFDecision,
		domain.JORFAvis,
	} {
		if strings.Contains(titre, typo) {
			return typo
		}
	}

	if strings.Contains(titre, "Demandes de changement de nom") {
		return domain.JORFAnnonce
	}
	for _, marker := range []string{"Commissions et organes", "Documents et publications", "Informations diverses"} {
		if strings.Contains(titre, marker) {
			return domain.JORFInformation
		}
	}
	if strings.Contains(titre, "Avis relatif à") || strings.Contains(titre, "Avis de") {
		return domain.JORFCommunication
	}
	return domain.JORFAutre
}

// scrapeArticleContent fetches the Légifrance page and stores its
// text. A placeholder is stored when the page has no content block or
// the fetch fails, so every acte keeps a content file.
func (p *Parser) scrapeArticleContent(ctx context.Context, docID, url string) string {
	p.log.Info("Scraping acte content", "url", url)

	text, err := p.fetchPageContent(ctx, url)
	if err != nil {
		p.log.Error("Failed to scrape acte", "url", url, "error", err.Error())
		text = fmt.Sprintf("Erreur: %v", err)
	}

	path, err := p.store.SaveJORF(docID, text)
	if err != nil {
		p.log.Error("Failed to store content", "document_id", docID, "error", err.Error())
		return ""
	}
	return path
}

func (p *Parser) fetchPageContent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return "", err
	}
	contentDiv := htmlx.FindByClass(root, "div", "page-content")
	if contentDiv == nil {
		return "Contenu non trouvé", nil
	}
	return htmlx.Text(contentDiv, "\n\n"), nil
}
