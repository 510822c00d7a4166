// Package scheduler runs the recurring scraping, enrichment and
// statistics jobs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/lexveille/lexveille-backend/internal/config"
	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/services"
)

const (
	enrichmentInterval = "@every 2h"
	statsInterval      = "@every 6h"

	jobTimeout = 30 * time.Minute
)

type Scheduler struct {
	log       *logger.Logger
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	scrape    *services.ScrapeService
	enrich    *services.EnrichmentService
	stats     *services.StatsService
	batchSize int
}

func New(cfg config.SchedulerConfig, scrape *services.ScrapeService, enrich *services.EnrichmentService, stats *services.StatsService, batchSize int, log *logger.Logger) *Scheduler {
	return &Scheduler{
		log:       log.With("component", "scheduler"),
		cron:      cron.New(),
		cfg:       cfg,
		scrape:    scrape,
		enrich:    enrich,
		stats:     stats,
		batchSize: batchSize,
	}
}

// dailySpec converts an HH:MM wall-clock time to a cron spec with a
// seconds field.
func dailySpec(hhmm string) (string, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", hhmm)
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

func (s *Scheduler) Start() error {
	lSpec, err := dailySpec(s.cfg.EURLexLTime)
	if err != nil {
		return fmt.Errorf("EURLEX_L_TIME: %w", err)
	}
	cSpec, err := dailySpec(s.cfg.EURLexCTime)
	if err != nil {
		return fmt.Errorf("EURLEX_C_TIME: %w", err)
	}

	if err := s.cron.AddFunc(lSpec, func() { s.runEURLexJob(domain.SeriesL) }); err != nil {
		return err
	}
	if err := s.cron.AddFunc(cSpec, func() { s.runEURLexJob(domain.SeriesC) }); err != nil {
		return err
	}

	if s.enrich != nil {
		if err := s.cron.AddFunc(enrichmentInterval, s.runEnrichmentJob); err != nil {
			return err
		}
		s.log.Info("Enrichment job scheduled", "interval", enrichmentInterval, "batch_size", s.batchSize)
	} else {
		s.log.Warn("LLM processing is disabled, enrichment job not scheduled")
	}

	if err := s.cron.AddFunc(statsInterval, s.stats.LogSummary); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		"eurlex_l_time", s.cfg.EURLexLTime,
		"eurlex_c_time", s.cfg.EURLexCTime,
	)

	// Baseline snapshot at startup.
	s.stats.LogSummary()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) runEURLexJob(series domain.Series) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.log.Info("Starting scheduled EUR-Lex scrape", "series", string(series))
	report := s.scrape.ScrapeEURLexDay(ctx, series, true, time.Now())
	s.log.Info("Scheduled EUR-Lex scrape finished",
		"series", string(series),
		"found", report.Found,
		"created", report.Created,
		"skipped", report.Skipped,
	)

	if report.Created > 0 && s.cfg.AutoProcessAfterScrape && s.enrich != nil {
		s.log.Info("Auto-processing new documents", "count", report.Created)
		if _, err := s.enrich.ProcessBatch(ctx, report.Created); err != nil {
			s.log.Error("Auto-processing failed", "error", err.Error())
		}
	}
}

func (s *Scheduler) runEnrichmentJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	stats, err := s.enrich.ProcessBatch(ctx, s.batchSize)
	if err != nil {
		s.log.Error("Scheduled enrichment failed", "error", err.Error())
		return
	}
	if stats.Processed+stats.Failed > 0 {
		s.log.Info("Scheduled enrichment finished",
			"processed", stats.Processed,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
		)
	}
}
