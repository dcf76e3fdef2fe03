package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bkyoung/review-quorum/internal/adapter/cli"
	"github.com/bkyoung/review-quorum/internal/adapter/llm"
	"github.com/bkyoung/review-quorum/internal/adapter/llm/anthropic"
	"github.com/bkyoung/review-quorum/internal/adapter/llm/gemini"
	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/bkyoung/review-quorum/internal/adapter/llm/ollama"
	"github.com/bkyoung/review-quorum/internal/adapter/llm/openai"
	"github.com/bkyoung/review-quorum/internal/adapter/llm/static"
	"github.com/bkyoung/review-quorum/internal/adapter/observability"
	"github.com/bkyoung/review-quorum/internal/adapter/output/json"
	"github.com/bkyoung/review-quorum/internal/adapter/output/markdown"
	"github.com/bkyoung/review-quorum/internal/adapter/source"
	"github.com/bkyoung/review-quorum/internal/adapter/store/sqlite"
	"github.com/bkyoung/review-quorum/internal/config"
	"github.com/bkyoung/review-quorum/internal/usecase/consensus"
	"github.com/bkyoung/review-quorum/internal/usecase/review"
	"github.com/bkyoung/review-quorum/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "rq",
		EnvPrefix:   "RQ",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	obs := buildObservability(cfg.Observability)

	var reviewLogger review.Logger
	if obs.logger != nil {
		reviewLogger = observability.NewReviewLogger(obs.logger)
	}

	prompts := llm.NewPromptBuilder(cfg.Review.Instructions)
	adapters := buildAdapters(cfg, prompts, obs)

	// Initialize store if enabled
	var reviewStore review.Store
	var runStore *sqlite.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			s, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				runStore = s
				reviewStore = s
				defer s.Close()
			}
		}
	}

	engine := review.NewEngine(review.EngineDeps{
		Aggregator: consensus.NewAggregator(similarityParams(cfg.Consensus)),
		Logger:     reviewLogger,
		Store:      reviewStore,
	})

	rootDir := cfg.Source.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	repoDir := cfg.Source.RepositoryDir
	if repoDir == "" {
		repoDir = rootDir
	}

	// Timestamp function for deterministic output file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}

	service := review.NewService(review.ServiceDeps{
		Engine:   engine,
		Adapters: adapters,
		Source:   source.NewLoader(rootDir),
		Git:      source.NewGitLoader(repoDir),
		Writers: map[string]review.ResultWriter{
			"markdown": markdown.NewWriter(nowFunc),
			"json":     json.NewWriter(nowFunc),
		},
	})

	var runLister cli.RunLister
	if runStore != nil {
		runLister = &runListerAdapter{store: runStore}
	}

	root := cli.NewRootCommand(cli.Dependencies{
		FileReviewer:  service,
		RunLister:     runLister,
		DefaultOutput: cfg.Output.Directory,
		DefaultFormat: cfg.Output.Format,
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rq"))
	}
	return paths
}

func similarityParams(cfg config.ConsensusConfig) consensus.SimilarityParams {
	params := consensus.DefaultSimilarityParams()
	if cfg.LineWindow > 0 {
		params.LineWindow = cfg.LineWindow
	}
	if cfg.TokenOverlapThreshold > 0 {
		params.TokenOverlapThreshold = cfg.TokenOverlapThreshold
	}
	if cfg.SeverityWindow > 0 {
		params.SeverityWindow = cfg.SeverityWindow
	}
	return params
}

// observabilityComponents holds shared observability instances.
type observabilityComponents struct {
	logger  llmhttp.Logger
	metrics llmhttp.Metrics
	pricing llmhttp.Pricing
}

// buildObservability creates observability components based on configuration.
func buildObservability(cfg config.ObservabilityConfig) observabilityComponents {
	var logger llmhttp.Logger
	var metrics llmhttp.Metrics

	if cfg.Logging.Enabled {
		logLevel := llmhttp.LogLevelInfo
		switch cfg.Logging.Level {
		case "debug":
			logLevel = llmhttp.LogLevelDebug
		case "error":
			logLevel = llmhttp.LogLevelError
		}

		logFormat := llmhttp.LogFormatHuman
		switch cfg.Logging.Format {
		case "json":
			logFormat = llmhttp.LogFormatJSON
		case "auto":
			// Pipes and CI get machine-readable logs.
			if !review.IsOutputTerminal() {
				logFormat = llmhttp.LogFormatJSON
			}
		}

		logger = llmhttp.NewDefaultLogger(logLevel, logFormat, cfg.Logging.RedactAPIKeys)
	}

	if cfg.Metrics.Enabled {
		metrics = llmhttp.NewDefaultMetrics()
	}

	return observabilityComponents{
		logger:  logger,
		metrics: metrics,
		pricing: llmhttp.NewDefaultPricing(),
	}
}

// buildAdapters constructs one review adapter per enabled provider.
// Providers missing required credentials are skipped with a warning so a
// partially configured setup still reviews with the providers it has.
func buildAdapters(cfg config.Config, prompts *llm.PromptBuilder, obs observabilityComponents) []review.Adapter {
	var adapters []review.Adapter

	opts := []llm.AdapterOption{llm.WithPricing(obs.pricing)}
	if obs.logger != nil {
		opts = append(opts, llm.WithLogger(obs.logger))
	}
	if obs.metrics != nil {
		opts = append(opts, llm.WithMetrics(obs.metrics))
	}

	if pc, ok := cfg.Providers["openai"]; ok && pc.Enabled {
		if pc.APIKey == "" {
			log.Println("OpenAI: no API key provided, skipping provider")
		} else {
			client := openai.NewClient(pc.APIKey, pc.Model)
			if pc.BaseURL != "" {
				client.SetBaseURL(pc.BaseURL)
			}
			client.SetTimeout(llmhttp.ParseTimeout(pc.Timeout, cfg.HTTP.Timeout, 60*time.Second))
			client.SetRetryConfig(llmhttp.BuildRetryConfig(pc, cfg.HTTP))
			adapters = append(adapters, newAdapter("openai", pc, cfg.HTTP, client, prompts, opts))
		}
	}

	if pc, ok := cfg.Providers["anthropic"]; ok && pc.Enabled {
		if pc.APIKey == "" {
			log.Println("Anthropic: no API key provided, skipping provider")
		} else {
			client := anthropic.NewClient(pc.APIKey, pc.Model)
			if pc.BaseURL != "" {
				client.SetBaseURL(pc.BaseURL)
			}
			client.SetTimeout(llmhttp.ParseTimeout(pc.Timeout, cfg.HTTP.Timeout, 60*time.Second))
			client.SetRetryConfig(llmhttp.BuildRetryConfig(pc, cfg.HTTP))
			adapters = append(adapters, newAdapter("anthropic", pc, cfg.HTTP, client, prompts, opts))
		}
	}

	if pc, ok := cfg.Providers["gemini"]; ok && pc.Enabled {
		if pc.APIKey == "" {
			log.Println("Gemini: no API key provided, skipping provider")
		} else {
			client := gemini.NewClient(pc.APIKey, pc.Model)
			if pc.BaseURL != "" {
				client.SetBaseURL(pc.BaseURL)
			}
			client.SetTimeout(llmhttp.ParseTimeout(pc.Timeout, cfg.HTTP.Timeout, 60*time.Second))
			client.SetRetryConfig(llmhttp.BuildRetryConfig(pc, cfg.HTTP))
			adapters = append(adapters, newAdapter("gemini", pc, cfg.HTTP, client, prompts, opts))
		}
	}

	if pc, ok := cfg.Providers["ollama"]; ok && pc.Enabled {
		host := pc.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		client := ollama.NewClient(host, pc.Model)
		client.SetTimeout(llmhttp.ParseTimeout(pc.Timeout, cfg.HTTP.Timeout, 60*time.Second))
		client.SetRetryConfig(llmhttp.BuildRetryConfig(pc, cfg.HTTP))
		adapters = append(adapters, newAdapter("ollama", pc, cfg.HTTP, client, prompts, opts))
	}

	if pc, ok := cfg.Providers["static"]; ok && pc.Enabled {
		adapters = append(adapters, static.NewAdapter("static"))
	}

	return adapters
}

func newAdapter(id string, pc config.ProviderConfig, httpCfg config.HTTPConfig, caller llm.Caller, prompts *llm.PromptBuilder, opts []llm.AdapterOption) *llm.Adapter {
	timeout := llmhttp.ParseTimeout(pc.Timeout, httpCfg.Timeout, 60*time.Second)
	return llm.NewAdapter(id, id, pc.Model, timeout, caller, prompts, opts...)
}

// runListerAdapter exposes persisted runs to the CLI.
type runListerAdapter struct {
	store *sqlite.Store
}

func (a *runListerAdapter) ListRuns(ctx context.Context, limit int) ([]cli.RunSummary, error) {
	runs, err := a.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]cli.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, cli.RunSummary{
			RunID:          run.RunID,
			CreatedAt:      run.CreatedAt,
			Path:           run.Path,
			TotalFindings:  run.TotalFindings,
			AgreementScore: run.AgreementScore,
			TotalCost:      run.TotalCost,
		})
	}
	return summaries, nil
}

// Compile-time interface compliance checks
var _ review.Adapter = (*llm.Adapter)(nil)
var _ review.Adapter = (*static.Adapter)(nil)
var _ review.SourceLoader = (*source.Loader)(nil)
var _ review.RefLoader = (*source.GitLoader)(nil)
var _ review.ResultWriter = (*markdown.Writer)(nil)
var _ review.ResultWriter = (*json.Writer)(nil)
var _ review.Store = (*sqlite.Store)(nil)
var _ cli.FileReviewer = (*review.Service)(nil)
