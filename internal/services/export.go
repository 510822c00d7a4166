package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

// Exporter dumps scraped batches to JSONL files so raw harvests can be
// inspected independently of the CSV store.
type Exporter struct {
	log *logger.Logger
	dir string
	now func() time.Time
}

func NewExporter(dir string, log *logger.Logger) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &Exporter{
		log: log.With("service", "export"),
		dir: dir,
		now: time.Now,
	}, nil
}

// ExportJSONL writes one document per line and returns the file path.
func (e *Exporter) ExportJSONL(docs []domain.Document, suffix string) (string, error) {
	filename := fmt.Sprintf("scraped_data_%s_%s.jsonl", suffix, e.now().Format("20060102_150405"))
	path := filepath.Join(e.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	e.log.Info("Exported scraped batch", "file", path, "documents", len(docs))
	return path, nil
}
