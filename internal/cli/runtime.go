package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Towich/mail-ads-ai/internal/config"
	"github.com/Towich/mail-ads-ai/internal/logger"
	"github.com/Towich/mail-ads-ai/pkg/agent"
	"github.com/Towich/mail-ads-ai/pkg/figma"
	"github.com/Towich/mail-ads-ai/pkg/gittools"
	"github.com/Towich/mail-ads-ai/pkg/jira"
	"github.com/Towich/mail-ads-ai/pkg/llm"
	"github.com/Towich/mail-ads-ai/pkg/rag"
	"github.com/Towich/mail-ads-ai/pkg/review"
	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// runtime holds the wired application for one command invocation.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *toolexec.Registry
	rag      *rag.Service
	agent    *agent.Service
}

// newRuntime loads configuration and builds the full service graph. Optional
// integrations (Jira, Figma) are wired only when configured.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := log.GetZerolog()

	ragService, err := buildRAG(cfg, zl)
	if err != nil {
		log.Close()
		return nil, err
	}

	registry := toolexec.NewRegistry(zl.With().Str("component", "registry").Logger())

	if err := rag.RegisterSearchTool(registry, ragService); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to register search tool: %w", err)
	}
	if err := gittools.Register(registry, gittools.Options{RepoPath: cfg.RepoPath}); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to register git tools: %w", err)
	}

	if cfg.Jira.BaseURL != "" && cfg.Jira.Token != "" {
		jiraClient, err := jira.NewClient(jira.Config{
			BaseURL:  cfg.Jira.BaseURL,
			Username: cfg.Jira.Username,
			Token:    cfg.Jira.Token,
			Logger:   zl.With().Str("component", "jira").Logger(),
		})
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to create jira client: %w", err)
		}
		if err := jira.RegisterTools(registry, jiraClient); err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to register jira tools: %w", err)
		}
	}

	if cfg.Figma.Token != "" {
		figmaClient, err := figma.NewClient(cfg.Figma.Token, zl.With().Str("component", "figma").Logger())
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to create figma client: %w", err)
		}
		if err := figma.RegisterTools(registry, figmaClient); err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to register figma tools: %w", err)
		}
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		log.Close()
		return nil, err
	}
	llmClient = llm.WithRetry(llmClient, cfg.LLM.MaxRetries, zl.With().Str("component", "llm").Logger())

	agentService, err := agent.New(agent.Config{
		LLM:           llmClient,
		Registry:      registry,
		Logger:        zl.With().Str("component", "agent").Logger(),
		Temperature:   cfg.LLM.Temperature,
		MaxIterations: cfg.Agent.MaxIterations,
		HistoryWindow: cfg.Agent.HistoryWindow,
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		registry: registry,
		rag:      ragService,
		agent:    agentService,
	}

	// First run against an empty store indexes the corpus up front
	if ragService.NeedsIndexing() {
		if err := rt.indexDocs(ctx); err != nil {
			zl.Warn().Err(err).Msg("Initial document indexing failed")
		}
	}

	return rt, nil
}

func (rt *runtime) close() {
	rt.log.Close()
}

// docsPath resolves the documentation directory against the repository.
func (rt *runtime) docsPath() string {
	if filepath.IsAbs(rt.cfg.RAG.DocsPath) {
		return rt.cfg.RAG.DocsPath
	}
	return filepath.Join(rt.cfg.RepoPath, rt.cfg.RAG.DocsPath)
}

// indexDocs loads the documentation corpus and indexes it.
func (rt *runtime) indexDocs(ctx context.Context) error {
	zl := rt.log.GetZerolog()

	docsPath := rt.docsPath()
	docs, err := rag.LoadDocuments(docsPath, zl)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		zl.Info().Str("path", docsPath).Msg("No documents to index")
		return nil
	}

	if err := rt.rag.Index(ctx, docs); err != nil {
		return fmt.Errorf("failed to index documents: %w", err)
	}

	zl.Info().Int("documents", len(docs)).Msg("Documentation indexed")
	return nil
}

// reviewWorkflow builds the review workflow on top of the agent.
func (rt *runtime) reviewWorkflow() (*review.Workflow, error) {
	zl := rt.log.GetZerolog()

	collector, err := review.NewCollector(rt.cfg.RepoPath, zl.With().Str("component", "review").Logger())
	if err != nil {
		return nil, err
	}
	sink := review.NewFileSink(rt.cfg.RepoPath, zl.With().Str("component", "review").Logger())

	return review.NewWorkflow(collector, rt.agent, sink, zl.With().Str("component", "review").Logger())
}

// startReindexers launches the optional background re-indexers: the
// filesystem watcher when watch is enabled and the cron job when a schedule
// is set. The returned stop function tears down whatever was started.
func startReindexers(ragCfg config.RAGConfig, docsPath string, zl zerolog.Logger, reindex func()) (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if ragCfg.Watch {
		watcher, err := rag.NewWatcher(zl.With().Str("component", "watcher").Logger(), reindex)
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Watch(docsPath); err != nil {
			watcher.Stop()
			return nil, fmt.Errorf("failed to watch documents: %w", err)
		}
		stops = append(stops, func() { watcher.Stop() })
	}

	if spec := ragCfg.ReindexSchedule; spec != "" {
		scheduler, err := rag.NewScheduler(spec, reindex, zl.With().Str("component", "scheduler").Logger())
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
		scheduler.Start()
		stops = append(stops, scheduler.Stop)
	}

	return stopAll, nil
}

// buildRAG assembles the embedder, vector store and retrieval service.
func buildRAG(cfg *config.Config, zl zerolog.Logger) (*rag.Service, error) {
	var embedder rag.Embedder
	switch cfg.RAG.EmbeddingProvider {
	case "ollama":
		embedder = rag.NewOllamaEmbedder(cfg.RAG.EmbeddingBaseURL, cfg.RAG.EmbeddingModel, 0)
	default:
		embedder = rag.NewOpenAIEmbedder(cfg.EmbeddingKey(), cfg.RAG.EmbeddingBaseURL, cfg.RAG.EmbeddingModel)
	}

	store, err := rag.NewStore(
		filepath.Join(cfg.DataDir, "vectors.db"),
		embedder.Dimension(),
		zl.With().Str("component", "vectorstore").Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	meta, err := rag.LoadMetaIndex(filepath.Join(cfg.DataDir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata index: %w", err)
	}

	svc, err := rag.NewService(rag.Config{
		Store:     store,
		Embedder:  embedder,
		Meta:      meta,
		Logger:    zl.With().Str("component", "rag").Logger(),
		ChunkSize: cfg.RAG.ChunkSize,
		Overlap:   cfg.RAG.Overlap,
		TopK:      cfg.RAG.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval service: %w", err)
	}
	return svc, nil
}

// buildLLM creates the chat client for the configured provider.
func buildLLM(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model), nil
	case "anthropic":
		return llm.NewAnthropicClient(cfg.LLM.APIKey, cfg.LLM.Model), nil
	case "ollama":
		return llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}
