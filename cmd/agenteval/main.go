// Command agenteval runs the AgentEval evaluation run engine: the HTTP API
// server, database migrations, and one-shot default seeding.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/api"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/config"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/dispatch"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/evaluator"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/judge"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/proposals"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/runs"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/startup"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/store"
	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/version"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:     "agenteval",
		Short:   "AgentEval — LLM agent evaluation run engine",
		Version: version.Full(),
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")

	rootCmd.AddCommand(newServeCmd(&configDir))
	rootCmd.AddCommand(newMigrateCmd(&configDir))
	rootCmd.AddCommand(newSeedDefaultsCmd(&configDir))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func loadEnvAndConfig(ctx context.Context, configDir string) (*config.Config, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}
	return config.Initialize(ctx, configDir)
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, store.Config{
		Path:            cfg.Store.Path,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
}

func newServeCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configDir)
		},
	}
}

func runServe(ctx context.Context, configDir string) error {
	logger := slog.Default()

	cfg, err := loadEnvAndConfig(ctx, configDir)
	if err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	apiKey, keySource := cfg.ResolveAPIKey()
	if keySource == config.KeySourcePlaceholder {
		logger.Warn("no judge or agent API key configured, using placeholder — LLM calls will fail authentication")
	}

	d := dispatch.New(retry.Policy(cfg.Retry), logger)
	j := judge.New(judge.Config{BaseURL: cfg.Judge.BaseURL, APIKey: apiKey, Model: cfg.Judge.Model}, retry.Policy(cfg.Retry), logger)
	ev := evaluator.New(d, j, logger)
	coordinator := runs.New(s, ev, logger)
	generator := proposals.New(s, j, logger, proposals.DefaultOccurrenceThreshold)
	reconciler := startup.New(s, coordinator, logger, cfg.Dispatch.DefaultEndpoint)

	if err := reconciler.Run(ctx); err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}

	server := api.NewServer(cfg, s, coordinator, generator, reconciler, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := server.Start(cfg.Server.Addr); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}

func newMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadEnvAndConfig(ctx, *configDir)
			if err != nil {
				return fmt.Errorf("initialize configuration: %w", err)
			}
			s, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()
			slog.Info("migrations applied", "store_path", cfg.Store.Path)
			return nil
		},
	}
}

func newSeedDefaultsCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-defaults",
		Short: "Seed the default agent, judge configs, and system prompts, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := slog.Default()
			cfg, err := loadEnvAndConfig(ctx, *configDir)
			if err != nil {
				return fmt.Errorf("initialize configuration: %w", err)
			}
			s, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			d := dispatch.New(retry.Policy(cfg.Retry), logger)
			apiKey, _ := cfg.ResolveAPIKey()
			j := judge.New(judge.Config{BaseURL: cfg.Judge.BaseURL, APIKey: apiKey, Model: cfg.Judge.Model}, retry.Policy(cfg.Retry), logger)
			ev := evaluator.New(d, j, logger)
			coordinator := runs.New(s, ev, logger)
			reconciler := startup.New(s, coordinator, logger, cfg.Dispatch.DefaultEndpoint)
			return reconciler.Run(ctx)
		},
	}
}
