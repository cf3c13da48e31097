package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeflow-ai/codeflow/agent"
	"github.com/codeflow-ai/codeflow/agent/persistence"
	"github.com/codeflow-ai/codeflow/config"
	"github.com/codeflow-ai/codeflow/internal/metrics"
	"github.com/codeflow-ai/codeflow/internal/telemetry"
	"github.com/codeflow-ai/codeflow/interp"
	"github.com/codeflow-ai/codeflow/llm"
	"github.com/codeflow-ai/codeflow/llm/providers/openai"
	"github.com/codeflow-ai/codeflow/llm/tokenizer"
)

// runTask drives one agent run end to end: config, logger, telemetry,
// metrics endpoint, provider, step store, then the loop itself.
func runTask(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	task := fs.String("task", "", "Task description")
	fs.Parse(args)

	if *task == "" && fs.NArg() > 0 {
		*task = strings.Join(fs.Args(), " ")
	}
	if *task == "" {
		fmt.Fprintln(os.Stderr, "No task given; use --task or a positional argument")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting codeflow",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var collector *metrics.Collector
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		g.Go(func() error {
			logger.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	a := buildAgent(cfg, buildProvider(cfg, logger), collector, openStepStore(cfg, logger), logger)

	result, runErr := a.Run(ctx, *task)
	stop() // winds down the metrics server
	if err := g.Wait(); err != nil {
		logger.Warn("metrics server error", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
		if result != nil {
			printSteps(result)
		}
		os.Exit(1)
	}

	printSteps(result)
	fmt.Printf("\nAnswer: %s\n", result.Answer)
	fmt.Printf("Tokens: %d prompt, %d completion\n",
		result.Usage.PromptTokens, result.Usage.CompletionTokens)
}

// runExec evaluates one snippet in a fresh sandbox session and prints
// the completion value and captured output.
func runExec(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	file := fs.String("file", "", "Read the snippet from a file")
	fs.Parse(args)

	code := strings.Join(fs.Args(), " ")
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
			os.Exit(1)
		}
		code = string(data)
	}
	if strings.TrimSpace(code) == "" {
		fmt.Fprintln(os.Stderr, "No code given; pass a snippet or --file")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := interp.NewSession(sessionOptions(cfg, logger)...)
	value, logs, err := session.Execute(ctx, code, nil)
	if logs != "" {
		fmt.Print(logs)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if value != nil {
		fmt.Printf("=> %v\n", value)
	}
}

func buildProvider(cfg *config.Config, logger *zap.Logger) llm.Provider {
	var provider llm.Provider = openai.New(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		DefaultModel: cfg.LLM.Model,
		Timeout:      cfg.LLM.Timeout,
	}, logger)
	if cfg.LLM.RateLimitRPS > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.LLM.RateLimitRPS, cfg.LLM.RateLimitBurst, logger)
	}
	return provider
}

// openStepStore opens the configured sqlite step store, or returns nil
// when persistence is disabled or unavailable.
func openStepStore(cfg *config.Config, logger *zap.Logger) agent.StepStore {
	if cfg.Database.Path == "" {
		return nil
	}
	store, err := persistence.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Warn("step store unavailable, steps will not be persisted", zap.Error(err))
		return nil
	}
	return store
}

func buildAgent(cfg *config.Config, provider llm.Provider, collector *metrics.Collector, store agent.StepStore, logger *zap.Logger) *agent.CodeActAgent {
	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithTokenizer(tokenizer.ForModel(cfg.LLM.Model)),
		agent.WithSessionOptions(sessionOptions(cfg, logger)...),
	}
	if collector != nil {
		opts = append(opts, agent.WithMetrics(collector))
	}
	if store != nil {
		opts = append(opts, agent.WithStepStore(store))
	}

	return agent.New(provider, agent.Config{
		Name:              cfg.Agent.Name,
		Model:             cfg.LLM.Model,
		SystemPrompt:      cfg.Agent.SystemPrompt,
		MaxSteps:          cfg.Agent.MaxSteps,
		MaxObservationLen: cfg.Agent.MaxObservationLen,
		TokenBudget:       cfg.Agent.TokenBudget,
		Temperature:       float32(cfg.Agent.Temperature),
		MaxTokens:         cfg.Agent.MaxTokens,
	}, opts...)
}

func sessionOptions(cfg *config.Config, logger *zap.Logger) []interp.SessionOption {
	return []interp.SessionOption{
		interp.WithTimeout(cfg.Interp.Timeout),
		interp.WithMaxOutputLen(cfg.Interp.MaxOutputLen),
		interp.WithAdditionalImports(cfg.Interp.AdditionalImports...),
		interp.WithLogger(logger),
	}
}

func printSteps(result *agent.RunResult) {
	for _, s := range result.Steps {
		fmt.Printf("--- step %d (%s)\n", s.Index, s.Duration.Round(time.Millisecond))
		if s.Code != "" {
			fmt.Println(s.Code)
		}
		if s.Observation != "" {
			fmt.Println(s.Observation)
		}
	}
}
