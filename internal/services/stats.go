package services

import (
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
)

// RepositoryStats is the aggregate view of the document store.
type RepositoryStats struct {
	TotalDocuments     int            `json:"total_documents"`
	BySource           map[string]int `json:"by_source"`
	ByProcessingStatus map[string]int `json:"by_processing_status"`
	ByLanguage         map[string]int `json:"by_language"`
}

type StatsService struct {
	log  *logger.Logger
	repo repos.DocumentRepo
}

func NewStatsService(repo repos.DocumentRepo, log *logger.Logger) *StatsService {
	return &StatsService{log: log.With("service", "stats"), repo: repo}
}

func (s *StatsService) Collect() (RepositoryStats, error) {
	docs, err := s.repo.GetAll(0, 0)
	if err != nil {
		return RepositoryStats{}, err
	}

	stats := RepositoryStats{
		TotalDocuments:     len(docs),
		BySource:           map[string]int{},
		ByProcessingStatus: map[string]int{},
		ByLanguage:         map[string]int{},
	}
	for _, doc := range docs {
		stats.BySource[string(doc.Source)]++
		stats.ByProcessingStatus[string(doc.ProcessingStatus)]++
		stats.ByLanguage[doc.Language]++
	}
	return stats, nil
}

// LogSummary writes the aggregate counts to the log, for the periodic
// statistics job.
func (s *StatsService) LogSummary() {
	stats, err := s.Collect()
	if err != nil {
		s.log.Error("Failed to collect statistics", "error", err.Error())
		return
	}
	s.log.Info("Repository statistics",
		"total_documents", stats.TotalDocuments,
		"by_source", stats.BySource,
		"by_processing_status", stats.ByProcessingStatus,
		"by_language", stats.ByLanguage,
	)
}
