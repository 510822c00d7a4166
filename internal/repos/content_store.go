package repos

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// ContentStore writes extracted document text to per-source directories
// under the content root. The repository only ever stores the returned
// paths.
type ContentStore struct {
	baseDir string
	log     *logger.Logger
}

func NewContentStore(baseDir string, log *logger.Logger) (*ContentStore, error) {
	s := &ContentStore{
		baseDir: baseDir,
		log:     log.With("store", "ContentStore"),
	}
	for _, dir := range []string{s.eurlexDir(domain.SeriesL), s.eurlexDir(domain.SeriesC), s.jorfDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create content dir %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *ContentStore) eurlexDir(series domain.Series) string {
	sub := "eurlex_l"
	if series == domain.SeriesC {
		sub = "eurlex_c"
	}
	return filepath.Join(s.baseDir, "eurlex", sub)
}

func (s *ContentStore) jorfDir() string {
	return filepath.Join(s.baseDir, "jorf")
}

// SaveEURLex stores content for an EUR-Lex document and returns the file path.
func (s *ContentStore) SaveEURLex(series domain.Series, docID, content string) (string, error) {
	return s.save(s.eurlexDir(series), docID, content)
}

// SaveJORF stores content for a JORF act and returns the file path.
func (s *ContentStore) SaveJORF(docID, content string) (string, error) {
	return s.save(s.jorfDir(), docID, content)
}

func (s *ContentStore) save(dir, docID, content string) (string, error) {
	safeID := unsafeFilenameChars.ReplaceAllString(docID, "_")
	path := filepath.Join(dir, safeID+".txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.log.Error("Failed to save content file", "path", path, "error", err.Error())
		return "", err
	}
	s.log.Debug("Content saved", "path", path)
	return path, nil
}
