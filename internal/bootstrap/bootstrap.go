package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/core/intent"
	"github.com/kirillkom/graphrag-assistant/internal/core/lexicon"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
	"github.com/kirillkom/graphrag-assistant/internal/core/usecase"
	rediscache "github.com/kirillkom/graphrag-assistant/internal/infrastructure/cache/redis"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/extractor/plaintext"
	neo4jgraph "github.com/kirillkom/graphrag-assistant/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/vector/elastic"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/vector/memory"
	"github.com/kirillkom/graphrag-assistant/internal/infrastructure/vector/qdrant"
)

// Role selects which dependencies a process connects to.
type Role int

const (
	// RoleAPI serves queries and, when ingest is enabled, publishes chunks.
	RoleAPI Role = iota
	// RoleWorker consumes chunks and writes the vector index and graph.
	RoleWorker
	// RoleTool serves queries only (CLI and MCP).
	RoleTool
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      *nats.Queue
	Classifier ports.IntentClassifier
	SearchUC   ports.SearchService
	AnswerUC   ports.AnswerService
	StoresUC   ports.StoreService
	CountUC    ports.CountService
	IngestUC   ports.PageIngestor
	ProcessUC  ports.ChunkProcessor

	closeFns []func()
}

type Option func(*settings)

type settings struct {
	processOpts   []usecase.ProcessOption
	breakerStates func(operation string, open bool)
}

// WithBreakerObserver receives circuit breaker transitions of every outbound client.
func WithBreakerObserver(fn func(operation string, open bool)) Option {
	return func(s *settings) {
		s.breakerStates = fn
	}
}

// WithProcessOptions forwards options to the chunk processor built for RoleWorker.
func WithProcessOptions(opts ...usecase.ProcessOption) Option {
	return func(s *settings) {
		s.processOpts = append(s.processOpts, opts...)
	}
}

func New(ctx context.Context, cfg config.Config, role Role, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	app := &App{Config: cfg, Logger: logger}
	if err := app.build(ctx, role, s); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, role Role, s settings) error {
	cfg := a.Config

	resilienceCfg := resilience.QueryConfig()
	if role == RoleWorker {
		resilienceCfg = resilience.IngestConfig()
	}
	executor := resilience.NewExecutor(resilienceCfg,
		resilience.WithLogger(a.Logger),
		resilience.WithStateObserver(s.breakerStates),
	)

	lx, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.WithExecutor(executor))
	embedder := ollama.NewEmbedder(ollamaClient)

	index, err := newVectorIndex(cfg, executor)
	if err != nil {
		return err
	}

	graph, err := a.newEntityGraph(ctx, cfg, executor)
	if err != nil {
		return err
	}

	if role == RoleWorker || (role == RoleAPI && cfg.IngestEnabled) {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             a.Logger,
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.Queue = queue
		a.closeFns = append(a.closeFns, queue.Close)
	}

	if role == RoleWorker {
		a.ProcessUC = usecase.NewProcessChunkUseCase(
			embedder,
			index,
			ollama.NewEntityExtractor(ollamaClient),
			graph,
			a.Logger,
			s.processOpts...,
		)
		return nil
	}

	catalog, err := a.newStoreCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	classifier := intent.NewClassifier(
		ollama.NewIntentLabeler(ollamaClient),
		intent.WithSemanticTimeout(cfg.IntentTimeout),
		intent.WithLogger(a.Logger),
	)
	counts := usecase.NewCountResolver(graph, lx, cfg.CountTimeout)
	stores := usecase.NewStoreLocator(catalog, lx, cfg.StoreTimeout)
	pipeline := usecase.NewRetrievalPipeline(
		lx,
		usecase.NewRetriever(embedder, index, cfg.EmbedTimeout, cfg.SearchTimeout),
		usecase.NewEnricher(graph, cfg.EnrichTimeout, cfg.EnrichConcurrency, a.Logger),
		usecase.NewReranker(lx),
	)

	a.Classifier = classifier
	a.CountUC = counts
	a.StoresUC = stores
	a.SearchUC = usecase.NewSearchUseCase(classifier, counts, pipeline)
	a.AnswerUC = usecase.NewAnswerUseCase(
		classifier,
		counts,
		stores,
		pipeline,
		ollama.NewGenerator(ollamaClient),
		lx,
		usecase.WithContextSize(cfg.RAGContextSize),
		usecase.WithCandidatePool(cfg.RAGTopK),
		usecase.WithGenerationTimeout(cfg.GenerationTimeout),
	)

	if a.Queue != nil {
		splitter := chunking.NewSplitter(cfg.ChunkMaxChars, 0)
		splitter.Filter = chunking.DefaultParagraphFilter()
		a.IngestUC = usecase.NewIngestPagesUseCase(plaintext.NewExtractor(), splitter, a.Queue)
	}
	return nil
}

func newVectorIndex(cfg config.Config, executor *resilience.Executor) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithExecutor(executor)), nil
	case config.VectorBackendElastic:
		client, err := elastic.New(elastic.Config{
			Addresses: cfg.ElasticAddresses,
			Username:  cfg.ElasticUsername,
			Password:  cfg.ElasticPassword,
			Index:     cfg.ElasticIndex,
		}, elastic.WithExecutor(executor))
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch index: %w", err)
		}
		return client, nil
	case config.VectorBackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
}

func (a *App) newEntityGraph(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.EntityGraph, error) {
	graph, err := neo4jgraph.New(ctx, neo4jgraph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, neo4jgraph.WithExecutor(executor))
	if err != nil {
		return nil, fmt.Errorf("init entity graph: %w", err)
	}
	a.closeFns = append(a.closeFns, func() { _ = graph.Close(context.Background()) })

	if cfg.RedisAddr == "" {
		return graph, nil
	}
	cacheCfg := rediscache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RedisTTL,
	}
	client, err := rediscache.NewClient(ctx, cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("init graph cache: %w", err)
	}
	a.closeFns = append(a.closeFns, func() { _ = client.Close() })
	return rediscache.NewGraphCache(graph, client, cacheCfg, a.Logger), nil
}

func (a *App) newStoreCatalog(ctx context.Context, cfg config.Config) (ports.StoreCatalog, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		file, err := localfs.NewStoreFile(cfg.StoreDataPath)
		if err != nil {
			return nil, fmt.Errorf("init store dataset: %w", err)
		}
		return file, nil
	case config.StoreBackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := postgres.NewStoreRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
