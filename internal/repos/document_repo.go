package repos

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateOnlyLayout  = "2006-01-02"

	newlineEscape  = `\n`
	carriageEscape = `\r`

	// A content value longer than this cannot be a file path; it means a
	// caller leaked document text into the record.
	contentPathMaxLen = 500
)

var csvHeader = []string{
	"id", "source", "date", "url", "typologie", "ministre",
	"titre", "abstract", "content", "language", "summary", "themes",
	"applicability", "keywords", "processing_status",
	"created_at", "updated_at", "processed",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var ErrExists = errors.New("document already exists")

// DocumentRepo persists document records in one semicolon-delimited CSV
// file. All mutating operations are serialized and rewrite the file
// atomically.
type DocumentRepo interface {
	Create(doc domain.Document) (*domain.Document, error)
	BulkCreate(docs []domain.Document) (created, skipped int)
	GetAll(skip, limit int) ([]domain.Document, error)
	GetByID(id string) (*domain.Document, error)
	GetPendingForProcessing(limit int) ([]domain.Document, error)
	UpdateDocument(id string, updates domain.DocumentUpdate) (bool, error)
	UpdateProcessingStatus(id string, status domain.ProcessingStatus) (bool, error)
	DeleteDocuments(ids []string) (int, error)
	CountBySource(source domain.Source) (int, error)
	GetRecent(days, limit int) ([]domain.Document, error)
	ReadContentFromFile(path string) (string, error)
}

type documentRepo struct {
	csvFile string
	log     *logger.Logger
	mu      sync.Mutex
	now     func() time.Time
}

func NewDocumentRepo(csvFile string, log *logger.Logger) (DocumentRepo, error) {
	r := &documentRepo{
		csvFile: csvFile,
		log:     log.With("repo", "DocumentRepo"),
		now:     time.Now,
	}
	if _, err := os.Stat(csvFile); errors.Is(err, os.ErrNotExist) {
		if err := r.writeAll(nil); err != nil {
			return nil, fmt.Errorf("create csv file %s: %w", csvFile, err)
		}
		r.log.Info("Created new CSV file", "file", csvFile)
	}
	return r, nil
}

// ---- escaping ----

func escapeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\n", newlineEscape)
	return strings.ReplaceAll(s, "\r", carriageEscape)
}

func unescapeNewlines(s string) string {
	s = strings.ReplaceAll(s, newlineEscape, "\n")
	return strings.ReplaceAll(s, carriageEscape, "\r")
}

// ---- row codec ----

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateOnlyLayout)
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(timestampLayout, s, time.Local); err == nil {
		return t
	}
	if len(s) >= 10 {
		if t, err := time.ParseInLocation(dateOnlyLayout, s[:10], time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseDateOnly(s string) time.Time {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.ParseInLocation(dateOnlyLayout, s[:10], time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func docToRow(doc domain.Document) []string {
	return []string{
		doc.ID,
		string(doc.Source),
		formatDate(doc.Date),
		doc.URL,
		doc.Typologie,
		doc.Ministre,
		escapeNewlines(doc.Titre),
		escapeNewlines(doc.Abstract),
		doc.Content,
		doc.Language,
		escapeNewlines(doc.Summary),
		joinList(doc.Themes),
		escapeNewlines(doc.Applicability),
		joinList(doc.Keywords),
		string(doc.ProcessingStatus),
		formatTime(doc.CreatedAt),
		formatTime(doc.UpdatedAt),
		formatTime(doc.Processed),
	}
}

func rowToDoc(row []string) (domain.Document, error) {
	if len(row) < len(csvHeader) {
		return domain.Document{}, fmt.Errorf("short row: %d fields", len(row))
	}
	return domain.Document{
		ID:               row[0],
		Source:           domain.Source(row[1]),
		Date:             parseDateOnly(row[2]),
		URL:              row[3],
		Typologie:        row[4],
		Ministre:         row[5],
		Titre:            unescapeNewlines(row[6]),
		Abstract:         unescapeNewlines(row[7]),
		Content:          row[8],
		Language:         row[9],
		Summary:          unescapeNewlines(row[10]),
		Themes:           splitList(row[11]),
		Applicability:    unescapeNewlines(row[12]),
		Keywords:         splitList(row[13]),
		ProcessingStatus: domain.ProcessingStatus(row[14]),
		CreatedAt:        parseTimestamp(row[15]),
		UpdatedAt:        parseTimestamp(row[16]),
		Processed:        parseTimestamp(row[17]),
	}, nil
}

// ---- file io ----

func (r *documentRepo) readAll() ([]domain.Document, error) {
	f, err := os.Open(r.csvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.log.Warn("CSV file not found", "file", r.csvFile)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if peek, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var docs []domain.Document
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.log.Error("CSV read error", "file", r.csvFile, "error", err.Error())
			return docs, nil
		}
		if first {
			first = false
			continue
		}
		doc, err := rowToDoc(row)
		if err != nil {
			r.log.Error("Skipping malformed row", "error", err.Error())
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// writeQuotedRow writes one fully quoted record. encoding/csv only quotes
// fields that need it, and the file contract requires every field quoted.
func writeQuotedRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(';'); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// writeAll rewrites the whole CSV through a temp file in the same
// directory, then renames it over the original.
func (r *documentRepo) writeAll(docs []domain.Document) (err error) {
	dir := filepath.Dir(r.csvFile)
	tmp, err := os.CreateTemp(dir, "legal_documents_*.csv")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if _, err = w.Write(utf8BOM); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = writeQuotedRow(w, csvHeader); err != nil {
		_ = tmp.Close()
		return err
	}
	for _, doc := range docs {
		if err = writeQuotedRow(w, docToRow(doc)); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, r.csvFile)
}

// ---- normalization ----

// prepare normalizes a record before it hits the file: trims text fields,
// enforces the content-as-path contract, and maintains timestamps.
func (r *documentRepo) prepare(doc *domain.Document, now time.Time) error {
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document must have an id")
	}
	doc.Titre = strings.TrimSpace(doc.Titre)
	doc.Abstract = strings.TrimSpace(doc.Abstract)
	doc.Summary = strings.TrimSpace(doc.Summary)
	doc.Applicability = strings.TrimSpace(doc.Applicability)

	if len(doc.Content) > contentPathMaxLen {
		r.log.Error("Content field holds text instead of a path, clearing", "document_id", doc.ID)
		doc.Content = ""
	}
	if doc.ProcessingStatus == "" {
		doc.ProcessingStatus = domain.StatusPending
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.ProcessingStatus == domain.StatusProcessed && doc.Processed.IsZero() {
		doc.Processed = now
	}
	return nil
}

// ---- operations ----

func (r *documentRepo) Create(doc domain.Document) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == doc.ID {
			r.log.Info("Document already exists, skipping", "document_id", doc.ID)
			return nil, ErrExists
		}
	}
	if err := r.prepare(&doc, r.now()); err != nil {
		return nil, err
	}
	if err := r.writeAll(append(docs, doc)); err != nil {
		return nil, err
	}
	r.log.Info("Document created", "document_id", doc.ID)
	return &doc, nil
}

func (r *documentRepo) BulkCreate(docs []domain.Document) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readAll()
	if err != nil {
		r.log.Error("Bulk create failed to read store", "error", err.Error())
		return 0, len(docs)
	}
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d.ID] = true
	}

	now := r.now()
	var created []domain.Document
	skipped := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			r.log.Error("Skipping document without id")
			skipped++
			continue
		}
		if seen[doc.ID] {
			r.log.Debug("Document already exists, skipping", "document_id", doc.ID)
			skipped++
			continue
		}
		if err := r.prepare(&doc, now); err != nil {
			r.log.Error("Validation error", "document_id", doc.ID, "error", err.Error())
			skipped++
			continue
		}
		created = append(created, doc)
		seen[doc.ID] = true
	}

	if len(created) == 0 {
		return 0, skipped
	}
	if err := r.writeAll(append(existing, created...)); err != nil {
		r.log.Error("Bulk write failed", "error", err.Error())
		return 0, skipped + len(created)
	}
	r.log.Info("Bulk creation successful", "created", len(created), "skipped", skipped)
	return len(created), skipped
}

func (r *documentRepo) GetAll(skip, limit int) ([]domain.Document, error) {
	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	// Newest first; records with an unparsable created_at sort last.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return paginate(docs, skip, limit), nil
}

func paginate(docs []domain.Document, skip, limit int) []domain.Document {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(docs) {
		return nil
	}
	end := len(docs)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return docs[skip:end]
}

func (r *documentRepo) GetByID(id string) (*domain.Document, error) {
	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, nil
}

func (r *documentRepo) GetPendingForProcessing(limit int) ([]domain.Document, error) {
	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	var pending []domain.Document
	for _, doc := range docs {
		if doc.ProcessingStatus != domain.StatusPending || doc.Content == "" {
			continue
		}
		if _, err := os.Stat(doc.Content); err != nil {
			continue
		}
		pending = append(pending, doc)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func applyUpdate(doc *domain.Document, updates domain.DocumentUpdate) {
	if updates.Titre != nil {
		doc.Titre = *updates.Titre
	}
	if updates.Abstract != nil {
		doc.Abstract = *updates.Abstract
	}
	if updates.Content != nil {
		doc.Content = *updates.Content
	}
	if updates.Ministre != nil {
		doc.Ministre = *updates.Ministre
	}
	if updates.Summary != nil {
		doc.Summary = *updates.Summary
	}
	if updates.Themes != nil {
		doc.Themes = *updates.Themes
	}
	if updates.Applicability != nil {
		doc.Applicability = *updates.Applicability
	}
	if updates.Keywords != nil {
		doc.Keywords = *updates.Keywords
	}
	if updates.ProcessingStatus != nil {
		doc.ProcessingStatus = *updates.ProcessingStatus
	}
}

func (r *documentRepo) UpdateDocument(id string, updates domain.DocumentUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.readAll()
	if err != nil {
		return false, err
	}
	for i := range docs {
		if docs[i].ID != id {
			continue
		}
		doc := docs[i]
		applyUpdate(&doc, updates)

		// id and created_at are immutable.
		doc.ID = docs[i].ID
		doc.CreatedAt = docs[i].CreatedAt
		if err := r.prepare(&doc, r.now()); err != nil {
			return false, err
		}
		docs[i] = doc
		if err := r.writeAll(docs); err != nil {
			return false, err
		}
		r.log.Info("Document updated", "document_id", id)
		return true, nil
	}
	r.log.Warn("Document not found for update", "document_id", id)
	return false, nil
}

func (r *documentRepo) UpdateProcessingStatus(id string, status domain.ProcessingStatus) (bool, error) {
	return r.UpdateDocument(id, domain.DocumentUpdate{ProcessingStatus: &status})
}

func (r *documentRepo) DeleteDocuments(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.readAll()
	if err != nil {
		return 0, err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	remaining := docs[:0:0]
	for _, doc := range docs {
		if !drop[doc.ID] {
			remaining = append(remaining, doc)
		}
	}
	deleted := len(docs) - len(remaining)
	if deleted == 0 {
		return 0, nil
	}
	if err := r.writeAll(remaining); err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *documentRepo) CountBySource(source domain.Source) (int, error) {
	docs, err := r.readAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, doc := range docs {
		if doc.Source == source {
			n++
		}
	}
	return n, nil
}

func (r *documentRepo) GetRecent(days, limit int) ([]domain.Document, error) {
	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	cutoff := r.now().AddDate(0, 0, -days)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	var recent []domain.Document
	for _, doc := range docs {
		if !doc.Date.IsZero() && !doc.Date.Before(cutoff) {
			recent = append(recent, doc)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

func (r *documentRepo) ReadContentFromFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty content path")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("Content file not readable", "path", path, "error", err.Error())
		return "", err
	}
	return string(raw), nil
}
