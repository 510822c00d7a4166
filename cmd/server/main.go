package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/lexveille/lexveille-backend/internal/config"
	apphttp "github.com/lexveille/lexveille-backend/internal/http"
	httpH "github.com/lexveille/lexveille-backend/internal/http/handlers"
	"github.com/lexveille/lexveille-backend/internal/llm"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
	"github.com/lexveille/lexveille-backend/internal/scheduler"
	"github.com/lexveille/lexveille-backend/internal/scrape/eurlex"
	"github.com/lexveille/lexveille-backend/internal/scrape/jorf"
	"github.com/lexveille/lexveille-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", "error", err.Error())
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	repo, err := repos.NewDocumentRepo(cfg.Storage.CSVFile, log)
	if err != nil {
		return err
	}
	store, err := repos.NewContentStore(cfg.Storage.ContentDir, log)
	if err != nil {
		return err
	}

	var exporter *services.Exporter
	if cfg.Storage.ExportJSONL {
		exporter, err = services.NewExporter(cfg.Storage.ExportDir, log)
		if err != nil {
			return err
		}
	}

	eurlexScraper := eurlex.NewScraper(cfg.Scraper, store, log)
	jorfParser := jorf.NewParser(cfg.Scraper, store, log)
	scrapeSvc := services.NewScrapeService(repo, eurlexScraper, jorfParser, exporter, log)
	statsSvc := services.NewStatsService(repo, log)

	var enrichSvc *services.EnrichmentService
	if cfg.LLM.Enabled {
		client, err := llm.New(cfg.LLM, log)
		if err != nil {
			return err
		}
		enrichSvc = services.NewEnrichmentService(repo, client, cfg.LLM.ChunkSizeTokens, log)
		log.Info("LLM enrichment enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	} else {
		log.Warn("LLM enrichment disabled")
	}

	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		Mode:            cfg.Server.Mode,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ScrapeHandler:   httpH.NewScrapeHandler(scrapeSvc, log),
		DocumentHandler: httpH.NewDocumentHandler(repo, log),
		ProcessHandler:  httpH.NewProcessHandler(enrichSvc, repo, log),
		StatsHandler:    httpH.NewStatsHandler(statsSvc),
		ConfigHandler:   httpH.NewConfigHandler(),
		HealthHandler:   httpH.NewHealthHandler(cfg.LLM.Enabled),
	}, fmt.Sprintf(":%d", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, scrapeSvc, enrichSvc, statsSvc, cfg.LLM.BatchSize, log)
		if err := sched.Start(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "port", cfg.Server.Port)
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		if sched != nil {
			sched.Stop()
		}
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}
