package repos

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

func TestContentStoreLayout(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewContentStore(dir, logger.NewNop()); err != nil {
		t.Fatalf("NewContentStore: %v", err)
	}

	for _, sub := range []string{
		filepath.Join("eurlex", "eurlex_l"),
		filepath.Join("eurlex", "eurlex_c"),
		"jorf",
	} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("missing directory %s: %v", sub, err)
		}
	}
}

func TestSaveEURLex(t *testing.T) {
	dir := t.TempDir()
	store, err := NewContentStore(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewContentStore: %v", err)
	}

	path, err := store.SaveEURLex(domain.SeriesL, "32024R0100", "texte du règlement")
	if err != nil {
		t.Fatalf("SaveEURLex: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("eurlex", "eurlex_l", "32024R0100.txt")) {
		t.Errorf("path = %q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "texte du règlement" {
		t.Errorf("content = %q, err = %v", raw, err)
	}

	path, err = store.SaveEURLex(domain.SeriesC, "32024C0001", "texte")
	if err != nil {
		t.Fatalf("SaveEURLex C: %v", err)
	}
	if !strings.Contains(path, "eurlex_c") {
		t.Errorf("C-series path = %q", path)
	}
}

func TestSaveJORFSanitizesID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewContentStore(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewContentStore: %v", err)
	}

	path, err := store.SaveJORF("12/34:56", "contenu de l'acte")
	if err != nil {
		t.Fatalf("SaveJORF: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("jorf", "12_34_56.txt")) {
		t.Errorf("path = %q", path)
	}
}
