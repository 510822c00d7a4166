package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
	"github.com/lexveille/lexveille-backend/internal/scrape/eurlex"
	"github.com/lexveille/lexveille-backend/internal/scrape/jorf"
)

// ScrapeReport summarizes one scraping run after persistence.
type ScrapeReport struct {
	Found   int
	Created int
	Skipped int
}

// ScrapeService runs the scrapers and persists their output.
type ScrapeService struct {
	log      *logger.Logger
	repo     repos.DocumentRepo
	eurlex   *eurlex.Scraper
	jorf     *jorf.Parser
	exporter *Exporter
}

func NewScrapeService(repo repos.DocumentRepo, eurlexScraper *eurlex.Scraper, jorfParser *jorf.Parser, exporter *Exporter, log *logger.Logger) *ScrapeService {
	return &ScrapeService{
		log:      log.With("service", "scrape"),
		repo:     repo,
		eurlex:   eurlexScraper,
		jorf:     jorfParser,
		exporter: exporter,
	}
}

func (s *ScrapeService) ScrapeEURLexDay(ctx context.Context, series domain.Series, scrapeDetails bool, targetDate time.Time) ScrapeReport {
	docs := s.eurlex.ScrapeDailyView(ctx, series, scrapeDetails, targetDate)
	return s.persist(docs, "eurlex_"+string(series))
}

func (s *ScrapeService) ScrapeEURLexRange(ctx context.Context, series domain.Series, scrapeDetails bool, from, to time.Time) ScrapeReport {
	docs := s.eurlex.ScrapeDateRange(ctx, series, scrapeDetails, from, to)
	return s.persist(docs, "eurlex_"+string(series)+"_range")
}

func (s *ScrapeService) ScrapeJORFEmail(ctx context.Context, emailBody string) ScrapeReport {
	docs := s.jorf.Parse(ctx, emailBody)
	return s.persist(docs, "jorf")
}

func (s *ScrapeService) persist(docs []domain.Document, exportSuffix string) ScrapeReport {
	if len(docs) == 0 {
		return ScrapeReport{}
	}
	log := s.log.With("run_id", uuid.NewString())
	if s.exporter != nil {
		if _, err := s.exporter.ExportJSONL(docs, exportSuffix); err != nil {
			log.Error("JSONL export failed", "suffix", exportSuffix, "error", err.Error())
		}
	}
	created, skipped := s.repo.BulkCreate(docs)
	log.Info("Scraped documents persisted",
		"found", len(docs),
		"created", created,
		"skipped", skipped,
	)
	return ScrapeReport{Found: len(docs), Created: created, Skipped: skipped}
}
