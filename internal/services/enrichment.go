// Package services holds the application services that sit between the
// HTTP layer and the repositories.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexveille/lexveille-backend/internal/domain"
	"github.com/lexveille/lexveille-backend/internal/llm"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
	"github.com/lexveille/lexveille-backend/internal/repos"
)

const (
	summaryMaxChars        = 500
	classifyMaxChars       = 15000
	classifyHeadChars      = 10000
	classifyTailChars      = 5000
	truncationMarker       = "\n\n[... DOCUMENT TRONQUÉ POUR LIMITER LE CONTEXTE ...]"
	defaultOneShotTokens   = 10000
	classifyEllipsisMarker = "\n\n[...]\n\n"
)

const summarySystemPrompt = `Tu es un expert juridique spécialisé dans l'analyse de documents légaux.
Ta tâche est de produire un résumé TRÈS COURT et précis en une seule phrase.`

const applicabilitySystemPrompt = `Tu es un expert en classification de documents juridiques.
Ta tâche est de classifier le document selon son applicabilité juridique et d'identifier son type précis.`

const themesSystemPrompt = `Tu es un expert en santé et sécurité au travail.
Réponds UNIQUEMENT avec un objet JSON valide.`

// BatchStats summarizes one enrichment batch run.
type BatchStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// EnrichmentResult carries the metadata produced for one document.
type EnrichmentResult struct {
	Summary       string
	Applicability string
	Themes        []string
}

// EnrichmentService generates summary, applicability and theme
// metadata for documents through an LLM provider.
type EnrichmentService struct {
	log           *logger.Logger
	repo          repos.DocumentRepo
	client        llm.Client
	oneShotTokens int
}

func NewEnrichmentService(repo repos.DocumentRepo, client llm.Client, oneShotTokens int, log *logger.Logger) *EnrichmentService {
	if oneShotTokens <= 0 {
		oneShotTokens = defaultOneShotTokens
	}
	return &EnrichmentService{
		log:           log.With("service", "enrichment"),
		repo:          repo,
		client:        client,
		oneShotTokens: oneShotTokens,
	}
}

// ProcessDocument enriches one document and persists the result. On
// any generation or persistence failure the document is flagged with
// the error status.
func (s *EnrichmentService) ProcessDocument(ctx context.Context, documentID string) error {
	s.log.Info("Processing document", "document_id", documentID)

	doc, err := s.repo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", documentID)
	}
	if doc.Content == "" {
		return fmt.Errorf("document %s has no content path", documentID)
	}

	content, err := s.repo.ReadContentFromFile(doc.Content)
	if err != nil {
		return fmt.Errorf("reading content for %s: %w", documentID, err)
	}
	if content == "" {
		return fmt.Errorf("document %s content is empty", documentID)
	}

	result, err := s.Enrich(ctx, doc, content)
	if err != nil {
		s.log.Error("Enrichment failed", "document_id", documentID, "error", err.Error())
		if _, statusErr := s.repo.UpdateProcessingStatus(documentID, domain.StatusError); statusErr != nil {
			s.log.Error("Failed to flag document as errored", "document_id", documentID, "error", statusErr.Error())
		}
		return err
	}

	status := domain.StatusProcessed
	ok, err := s.repo.UpdateDocument(documentID, domain.DocumentUpdate{
		Summary:          domain.StringPtr(result.Summary),
		Applicability:    domain.StringPtr(result.Applicability),
		Themes:           domain.StringsPtr(result.Themes),
		Keywords:         domain.StringsPtr(nil),
		ProcessingStatus: domain.StatusPtr(status),
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("document %s disappeared during processing", documentID)
	}

	s.log.Info("Document processed",
		"document_id", documentID,
		"applicability", result.Applicability,
		"themes", strings.Join(result.Themes, ", "),
		"summary_length", len(result.Summary),
	)
	return nil
}

// Enrich runs the three generation steps without touching storage.
func (s *EnrichmentService) Enrich(ctx context.Context, doc *domain.Document, content string) (*EnrichmentResult, error) {
	summary, err := s.generateSummary(ctx, doc, content)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	applicability, err := s.classifyApplicability(ctx, doc, content)
	if err != nil {
		return nil, fmt.Errorf("applicability: %w", err)
	}
	themes, err := s.classifyThemes(ctx, doc, content)
	if err != nil {
		return nil, fmt.Errorf("themes: %w", err)
	}
	return &EnrichmentResult{Summary: summary, Applicability: applicability, Themes: themes}, nil
}

// ProcessBatch enriches up to batchSize pending documents.
func (s *EnrichmentService) ProcessBatch(ctx context.Context, batchSize int) (BatchStats, error) {
	pending, err := s.repo.GetPendingForProcessing(batchSize)
	if err != nil {
		return BatchStats{}, err
	}
	if len(pending) == 0 {
		s.log.Info("No pending documents to process")
		return BatchStats{}, nil
	}
	s.log.Info("Starting batch processing", "pending", len(pending))

	var stats BatchStats
	for i, doc := range pending {
		if ctx.Err() != nil {
			stats.Skipped = len(pending) - i
			return stats, ctx.Err()
		}
		s.log.Info("Processing batch item", "current", i+1, "total", len(pending), "document_id", doc.ID)
		if err := s.ProcessDocument(ctx, doc.ID); err != nil {
			stats.Failed++
			continue
		}
		stats.Processed++
	}

	s.log.Info("Batch processing complete",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

func (s *EnrichmentService) generateSummary(ctx context.Context, doc *domain.Document, content string) (string, error) {
	tokens := s.client.CountTokens(content)
	if tokens > s.oneShotTokens {
		s.log.Warn("Document exceeds one-shot limit, truncating",
			"document_id", doc.ID,
			"tokens", tokens,
			"limit", s.oneShotTokens,
		)
		limit := s.oneShotTokens * 4
		content = truncateRunes(content, limit) + truncationMarker
	}

	docType := doc.Typologie
	if docType == "" {
		docType = "document"
	}
	source := string(doc.Source)
	if source == "" {
		source = "inconnu"
	}

	prompt := fmt.Sprintf(`Analyse ce document juridique et produis un résumé ULTRA-COURT.

**Type de document**: %s
**Source**: %s

**Contenu**:
%s

**Instructions CRITIQUES**:
1. Produis UN RÉSUMÉ EN UNE SEULE PHRASE de maximum 500 caractères
2. Capture UNIQUEMENT l'idée principale du document
3. Sois extrêmement concis et direct
4. Évite les mots inutiles et les formules de politesse
5. Va droit au but

Exemple de format attendu:
"Décret sur la protection des travailleurs contre les risques électriques"
"Directive européenne relative aux équipements de protection individuelle"

Résumé (max 500 caractères):`, docType, source, content)

	summary, err := s.client.GenerateText(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if len([]rune(summary)) > summaryMaxChars {
		summary = truncateRunes(summary, summaryMaxChars-3) + "..."
	}
	return summary, nil
}

func (s *EnrichmentService) classifyApplicability(ctx context.Context, doc *domain.Document, content string) (string, error) {
	content = truncateForClassification(content)

	titre := doc.Titre
	if titre == "" {
		titre = "Sans titre"
	}
	docType := doc.Typologie
	if docType == "" {
		docType = "inconnu"
	}

	var typesList []string
	for _, cat := range domain.ApplicabilityCategories {
		for _, dt := range cat.Types {
			typesList = append(typesList, "- "+cat.Name+"/"+dt)
		}
	}

	prompt := fmt.Sprintf(`Classifie ce document juridique selon son applicabilité ET son type précis.

**Titre**: %s
**Type déclaré**: %s
**Résumé**: %s

**Contenu** (extrait):
%s

**Classifications possibles** (catégorie/type):
%s

**Instructions**:
1. Analyse le contenu et le type de document
2. Identifie la catégorie d'applicabilité:
- **information**: Document informatif sans force contraignante
- **obligation**: Texte juridiquement contraignant créant des obligations
- **jurisprudence**: Décision de justice ou interprétation judiciaire

3. Identifie le type de document précis parmi la liste fournie

4. Réponds UNIQUEMENT avec le format: catégorie/type
Exemples: "obligation/Règlement", "information/Circulaire", "jurisprudence/Arrêt"

Classification (catégorie/type):`, titre, docType, doc.Abstract, content, strings.Join(typesList, "\n"))

	response, err := s.client.GenerateText(ctx, applicabilitySystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return resolveApplicability(response, s.log), nil
}

// resolveApplicability validates a raw model answer against the closed
// vocabulary, degrading to category defaults when the type or the whole
// answer is off-list.
func resolveApplicability(response string, log *logger.Logger) string {
	response = strings.TrimSpace(response)
	response = strings.Trim(response, `"'`)
	response = strings.TrimSpace(response)

	if category, docType, found := strings.Cut(response, "/"); found {
		if cat, ok := domain.ApplicabilityCategoryByName(category); ok {
			docType = strings.TrimSpace(docType)
			for _, valid := range cat.Types {
				if strings.EqualFold(valid, docType) {
					return cat.Name + "/" + valid
				}
			}
			result := cat.Name + "/" + cat.Types[0]
			log.Warn("Unknown applicability type, using category default", "type", docType, "result", result)
			return result
		}
	}

	lower := strings.ToLower(response)
	for _, name := range []string{"obligation", "jurisprudence", "information"} {
		if strings.Contains(lower, name) {
			cat, _ := domain.ApplicabilityCategoryByName(name)
			result := cat.Name + "/" + cat.Types[0]
			log.Warn("Partial applicability match", "response", response, "result", result)
			return result
		}
	}

	log.Warn("Unexpected applicability response", "response", response, "result", domain.DefaultApplicability)
	return domain.DefaultApplicability
}

type themeClassification struct {
	Themes    []string `json:"themes"`
	Reasoning string   `json:"reasoning"`
}

func (s *EnrichmentService) classifyThemes(ctx context.Context, doc *domain.Document, content string) ([]string, error) {
	content = truncateForClassification(content)

	titre := doc.Titre
	if titre == "" {
		titre = "Sans titre"
	}
	docType := doc.Typologie
	if docType == "" {
		docType = "inconnu"
	}

	var themesList []string
	for _, theme := range domain.AllThemes() {
		themesList = append(themesList, "- "+theme)
	}

	prompt := fmt.Sprintf(`Analyse ce document juridique et identifie les thèmes santé-sécurité pertinents.

**Titre**: %s
**Type**: %s
**Résumé**: %s

**Contenu** (extrait):
%s

**Thèmes disponibles**:
%s

**Instructions**:
1. Identifie les 3 thèmes les PLUS PERTINENTS
2. Classe-les par ordre DÉCROISSANT de représentativité
3. Fournis une explication courte

Réponds UNIQUEMENT avec ce JSON (pas de texte avant/après):
{
  "themes": ["thème1", "thème2", "thème3"],
  "reasoning": "explication courte"
}`, titre, docType, doc.Abstract, content, strings.Join(themesList, "\n"))

	// Structured output when the provider enforces it; otherwise the
	// in-prompt JSON instruction has to carry the contract alone.
	generate := s.client.GenerateText
	if s.client.SupportsJSONOutput() {
		generate = s.client.GenerateJSON
	}
	response, err := generate(ctx, themesSystemPrompt, prompt)
	if err != nil {
		s.log.Error("Theme classification failed", "document_id", doc.ID, "error", err.Error())
		return []string{domain.DefaultTheme}, nil
	}

	var parsed themeClassification
	if err := json.Unmarshal([]byte(extractJSONObject(response)), &parsed); err != nil {
		s.log.Error("Theme classification returned invalid JSON", "document_id", doc.ID, "error", err.Error())
		return []string{domain.DefaultTheme}, nil
	}

	var themes []string
	for _, theme := range parsed.Themes {
		theme = strings.TrimSpace(theme)
		if theme == "" || !domain.IsKnownTheme(theme) {
			continue
		}
		themes = append(themes, theme)
		if len(themes) == 3 {
			break
		}
	}
	if len(themes) == 0 {
		themes = []string{domain.DefaultTheme}
	}
	return themes, nil
}

// extractJSONObject tolerates prose around the JSON object that some
// providers emit despite instructions.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func truncateForClassification(content string) string {
	runes := []rune(content)
	if len(runes) <= classifyMaxChars {
		return content
	}
	head := string(runes[:classifyHeadChars])
	tail := string(runes[len(runes)-classifyTailChars:])
	return head + classifyEllipsisMarker + tail
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
