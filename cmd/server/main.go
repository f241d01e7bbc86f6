package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/ai"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/chunker"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/adapter/store"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/handler"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/monitor"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/retry"
	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/service"
	"github.com/nexgen-tech-labs/infrajet-embeddings/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	cfg := config.Load()

	slog.Info("🚀 Starting InfraJet Embeddings",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_dimension", cfg.EmbeddingDimension,
	)

	excludes, err := config.LoadProfile(cfg, cfg.ProfilePath)
	if err != nil {
		slog.Error("failed to load indexing profile", "path", cfg.ProfilePath, "error", err)
		os.Exit(1)
	}

	// ── Vector store ─────────────────────────────────────────────────────
	var vectorStore port.VectorStore
	switch cfg.StoreBackend {
	case "memory":
		vectorStore = store.NewMemoryStore()
		slog.Info("using in-memory vector store")
	default:
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pgStore.Migrate(ctx, cfg.EmbeddingDimension); err != nil {
			cancel()
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		cancel()
		vectorStore = store.NewVectorStore(pgStore, cfg.EmbeddingDimension)
	}

	// ── AI providers ─────────────────────────────────────────────────────
	var limiter *rate.Limiter
	if cfg.ProviderRatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.ProviderRatePerMin)/60.0), cfg.ProviderRatePerMin)
	}

	var embedder port.Embedder
	var summarizer port.Summarizer
	switch cfg.EmbeddingProvider {
	case "hash":
		embedder = ai.NewHashEmbedder(cfg.EmbeddingDimension)
		slog.Info("using deterministic hash embedder")
	default:
		ollamaAI := ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.OllamaChatModel,
				Token:   cfg.OllamaChatToken,
			},
			cfg.EmbeddingDimension,
			limiter,
		)
		embedder = ollamaAI
		if cfg.SummariesEnabled {
			summarizer = ai.NewLLMSummarizer(ollamaAI, cfg.SummaryBatchSize, cfg.SummaryMaxTokens)
		}
	}

	// ── Monitoring ───────────────────────────────────────────────────────
	mon := monitor.New(time.Duration(cfg.ResourceSampleSeconds) * time.Second)
	defer mon.Stop()

	// ── Services ─────────────────────────────────────────────────────────
	policy := retry.NewPolicy()
	tracker := service.NewJobTracker()

	indexer := service.NewIndexerService(
		vectorStore,
		embedder,
		summarizer,
		chunker.NewHCLParser(),
		chunker.New(cfg.MaxChunkTokens, cfg.ChunkOverlap),
		tracker,
		policy,
		mon,
		service.IndexerOptions{
			MaxConcurrentFiles:   cfg.MaxConcurrentFiles,
			MaxFiles:             cfg.MaxFiles,
			DefaultExtensions:    cfg.DefaultExtensions,
			ExcludeGlobs:         excludes,
			SummariesEnabled:     cfg.SummariesEnabled && summarizer != nil,
			SummaryMinConfidence: cfg.SummaryMinConfidence,
		},
	)
	retriever := service.NewRetrieverService(vectorStore, embedder, policy, mon)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	api := app.Group("/api/v1")

	embeddingsHandler := handler.NewEmbeddingsHandler(indexer, vectorStore)
	embeddingsHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(indexer)
	jobsHandler.Register(api)

	searchHandler := handler.NewSearchHandler(retriever)
	searchHandler.Register(api)

	healthHandler := handler.NewHealthHandler(mon)
	healthHandler.Register(api)

	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
