package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"knowledge-hub/internal/analyzer"
	"knowledge-hub/internal/config"
	"knowledge-hub/internal/embedding"
	"knowledge-hub/internal/helper"
	"knowledge-hub/internal/ingest"
	"knowledge-hub/internal/llmservice"
	"knowledge-hub/internal/parser"
	"knowledge-hub/internal/rag"
	"knowledge-hub/internal/validator"
	"knowledge-hub/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env carries secrets locally; missing file is fine.
	_ = godotenv.Load()

	filePath := flag.String("file", "", "Path to a document to ingest")
	analyzePath := flag.String("analyze", "", "Path to a document to summarize with flashcards")
	query := flag.String("query", "", "Question to answer from the index")
	checkKey := flag.Bool("check-key", false, "Validate the configured API key against the provider")
	model := flag.String("model", "", "Model override for this call")
	key := flag.String("key", "", "Caller-supplied API key (caller credential policy only)")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not touch the index")
	exportSnap := flag.Bool("export", false, "Write an encrypted snapshot of the index")
	importSnap := flag.Bool("import", false, "Restore the index from an encrypted snapshot")
	reset := flag.Bool("reset", false, "Drop every entry from the index")
	flag.Parse()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *checkKey:
		checkCredential(ctx, cfg, *key)
	case *filePath != "":
		ingestDocument(ctx, cfg, *filePath, *dryRun)
	case *analyzePath != "":
		analyzeDocument(ctx, cfg, *analyzePath, *model, *key)
	case *query != "":
		answerQuery(ctx, cfg, *query, *model, *key)
	case *exportSnap, *importSnap, *reset:
		maintainIndex(ctx, cfg, *exportSnap, *importSnap, *reset)
	default:
		log.Fatal().Msg("Provide one of -file, -analyze, -query, -check-key, -export, -import or -reset")
	}
}

func ingestDocument(ctx context.Context, cfg *config.Config, filePath string, dryRun bool) {
	extractor := parser.NewExtractor()

	if dryRun {
		pages, err := extractor.Extract(filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error extracting document")
		}
		log.Info().Int("pages", len(pages)).Msg("Dry run, nothing stored")
		helper.PrettyPrint(pages)
		return
	}

	store, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	pipeline := ingest.NewPipeline(extractor, embedder, store, cfg)
	count, err := pipeline.Ingest(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}

	fmt.Printf("Ingested %d chunks from %s\n", count, filePath)
}

func answerQuery(ctx context.Context, cfg *config.Config, query, model, key string) {
	store, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm := llmservice.NewClient(&cfg.LLM)
	r := rag.NewRAG(store, embedder, llm, cfg)

	response, err := r.Query(ctx, query, rag.Options{Model: model, Key: key})
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func analyzeDocument(ctx context.Context, cfg *config.Config, filePath, model, key string) {
	llm := llmservice.NewClient(&cfg.LLM)
	a := analyzer.NewAnalyzer(parser.NewExtractor(), llm, cfg)

	result, err := a.Analyze(ctx, filePath, analyzer.Options{Model: model, Key: key})
	if err != nil {
		log.Fatal().Err(err).Msg("Error analyzing document")
	}

	log.Info().Msg("Summary: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", result.Summary)

	log.Info().Msg("Flashcards: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(result.Flashcards)
}

func maintainIndex(ctx context.Context, cfg *config.Config, export, restore, reset bool) {
	store, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	switch {
	case reset:
		r, ok := store.(vectorstore.Resetter)
		if !ok {
			log.Fatal().Str("store", cfg.Store.Type).Msg("Backend cannot reset the index")
		}
		if err := r.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error resetting index")
		}
		fmt.Println("Index reset")
	case export:
		s, ok := store.(vectorstore.Snapshotter)
		if !ok {
			log.Fatal().Str("store", cfg.Store.Type).Msg("Backend cannot snapshot the index")
		}
		if err := s.Export(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error exporting index")
		}
		fmt.Println("Snapshot written")
	case restore:
		s, ok := store.(vectorstore.Snapshotter)
		if !ok {
			log.Fatal().Str("store", cfg.Store.Type).Msg("Backend cannot snapshot the index")
		}
		if err := s.Import(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error importing index")
		}
		fmt.Println("Snapshot restored")
	}
}

func checkCredential(ctx context.Context, cfg *config.Config, key string) {
	credential, err := cfg.ResolveCredential(key)
	if err != nil {
		log.Fatal().Err(err).Msg("No credential to check")
	}

	llm := llmservice.NewClient(&cfg.LLM)
	result := validator.Validate(ctx, llm, credential)
	if !result.Valid {
		log.Error().Str("error", result.Error).Msg("API key rejected")
		os.Exit(1)
	}

	fmt.Printf("API key accepted. %d generation-capable models:\n", len(result.Models))
	for _, m := range result.Models {
		fmt.Printf(" - %s\n", m)
	}
}
