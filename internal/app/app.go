package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/config"
	"github.com/crammerlabs/crammer/internal/core"
	db "github.com/crammerlabs/crammer/internal/core/database"
	"github.com/crammerlabs/crammer/internal/core/ingestion_engine"
	"github.com/crammerlabs/crammer/internal/core/llm"
	"github.com/crammerlabs/crammer/internal/core/pinecone"
	"github.com/crammerlabs/crammer/internal/services"
)

// App holds the wired service graph. Construction fails once at startup on
// configuration problems (bad credentials, missing index) instead of being
// re-checked per request.
type App struct {
	Store    core.VectorStore
	Ingestor ingestion_engine.Ingestor
	Tutor    *services.TutorService
	Server   *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a := &App{}

	embedder := pinecone.NewInferenceClient(cfg.PineconeAPIKey, cfg.EmbedModel)

	store, err := a.buildStore(appCtx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.Store = store

	// Surface bad credentials or a missing index now, and log where we start.
	st, err := store.Stats(appCtx)
	if err != nil {
		return nil, fmt.Errorf("index %q not reachable: %w", cfg.IndexName, err)
	}
	log.Info("index ready",
		zap.String("index", cfg.IndexName),
		zap.String("backend", cfg.VectorBackend),
		zap.Int("vectors", st.TotalVectorCount))

	provider, err := a.buildLLM(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize llm provider: %w", err)
	}

	extractor := ingestion_engine.NewDocconvExtractor(log)

	ingCfg := &ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		VerifyStrict: cfg.VerifyStrict,
	}
	a.Ingestor = ingestion_engine.NewDocumentIngestor(store, embedder, extractor, ingCfg, cfg.IndexName, log)

	a.Tutor = services.NewTutorService(embedder, store, provider, log)

	a.Server = NewServer(cfg, a.Ingestor, a.Tutor, log)
	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (core.VectorStore, error) {
	switch cfg.VectorBackend {
	case "pgvector":
		store, err := db.NewPgVectorStore(ctx, cfg.DatabaseURL, cfg.EmbedDim, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "pinecone", "":
		client := pinecone.NewClient(cfg.PineconeAPIKey)
		return pinecone.NewIndex(ctx, client, cfg.IndexName)
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

func (a *App) buildLLM(ctx context.Context, cfg *config.Config) (core.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "gemini":
		provider, err := llm.NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, provider.Close)
		return provider, nil
	case "groq", "":
		return llm.NewGroqLLM(cfg.GroqAPIKey, cfg.GenModel)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
