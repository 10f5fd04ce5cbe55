package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"knowledge-hub/internal/config"
	"knowledge-hub/internal/models"
)

// Extractor provides the document's full text; the analyzer never
// touches the index.
type Extractor interface {
	Extract(path string) ([]models.Page, error)
}

// Generator is the single generative-model call the analyzer issues.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (string, error)
}

// Analyzer produces a summary and flashcards from the whole document
// in one model call. The model is asked for raw JSON; anything it gets
// wrong is degraded locally, never raised.
type Analyzer struct {
	extractor Extractor
	llm       Generator
	cfg       *config.Config
}

func NewAnalyzer(extractor Extractor, llm Generator, cfg *config.Config) *Analyzer {
	return &Analyzer{extractor: extractor, llm: llm, cfg: cfg}
}

// Options carries per-call overrides, same shape as the query side.
type Options struct {
	Model string
	Key   string
}

// Analyze extracts the full text, truncates it to the configured
// budget and requests summary plus flashcards as one structured
// response. The returned error is reserved for extraction failures;
// provider and parse failures come back inside the result so the
// caller always has renderable content.
func (a *Analyzer) Analyze(ctx context.Context, path string, opts Options) (*models.AnalysisResult, error) {
	pages, err := a.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	fullText := truncate(sb.String(), a.cfg.RAG.MaxDocumentChars)

	credential, err := a.cfg.ResolveCredential(opts.Key)
	if err != nil {
		return degraded(models.UserMessage(err)), nil
	}

	prompt := fmt.Sprintf(models.AnalysisPromptTemplate, fullText)
	raw, err := a.llm.Generate(ctx, models.GenerateRequest{
		Model:  opts.Model,
		Prompt: prompt,
		Key:    credential,
	})
	if err != nil {
		log.Error().Err(err).Msg("Error generating analysis")
		return degraded(models.UserMessage(err)), nil
	}

	result, err := decodeAnalysis(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Model returned undecodable analysis")
		return degraded("Error generating summary: the model response could not be decoded."), nil
	}
	return result, nil
}

// decodeAnalysis strictly decodes the expected shape after stripping
// the markdown fences models keep adding despite instructions.
func decodeAnalysis(raw string) (*models.AnalysisResult, error) {
	clean := stripFences(raw)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParse, err)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary", models.ErrParse)
	}
	if len(result.Flashcards) > models.FlashcardCount {
		result.Flashcards = result.Flashcards[:models.FlashcardCount]
	}
	if result.Flashcards == nil {
		result.Flashcards = []models.Flashcard{}
	}
	return &result, nil
}

func stripFences(raw string) string {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	return strings.TrimSpace(clean)
}

func degraded(summary string) *models.AnalysisResult {
	return &models.AnalysisResult{
		Summary:    summary,
		Flashcards: []models.Flashcard{},
	}
}

// truncate caps the text at maxChars bytes without splitting a UTF-8
// sequence.
func truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
