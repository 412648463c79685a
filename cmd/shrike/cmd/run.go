package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/core/config"
	"github.com/mlenstra/shrike/internal/core/db"
	"github.com/mlenstra/shrike/internal/dispatch"
	"github.com/mlenstra/shrike/internal/engine"
	"github.com/mlenstra/shrike/internal/pipeline"
	"github.com/mlenstra/shrike/internal/policy"
	"github.com/mlenstra/shrike/internal/retry"
	"github.com/mlenstra/shrike/internal/types"
)

const Version = "0.1.0"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process NDJSON events through the engine",
	Long: `Reads newline-delimited JSON events from stdin (or --events), runs each
through the configured pipeline and alert policies, and delivers triggered
alerts to the configured providers.`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("policies", "", "alert policy JSON file (required)")
	runCmd.Flags().String("pipeline", "", "pipeline JSON file")
	runCmd.Flags().String("providers", "", "provider JSON file")
	runCmd.Flags().String("events", "", "NDJSON event file (default stdin)")
}

func runEngine(cmd *cobra.Command, args []string) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	policiesPath, _ := cmd.Flags().GetString("policies")
	if policiesPath == "" {
		return fmt.Errorf("--policies required")
	}
	policies, err := config.LoadPolicies(policiesPath)
	if err != nil {
		return err
	}

	matcher, err := policy.NewMatcher(policies)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	var providers []types.Provider
	if path, _ := cmd.Flags().GetString("providers"); path != "" {
		providers, err = config.LoadProviders(path)
		if err != nil {
			return err
		}
	}
	if err := engine.ValidateProviderRefs(policies, providers); err != nil {
		return err
	}

	var pl *pipeline.Pipeline
	if path, _ := cmd.Flags().GetString("pipeline"); path != "" {
		spec, err := config.LoadPipelineSpec(path)
		if err != nil {
			return err
		}
		pl, err = pipeline.Compile(spec, pipeline.Options{Logger: log})
		if err != nil {
			return fmt.Errorf("failed to compile pipeline: %w", err)
		}
	}

	var store engine.AlertStore
	if dbURL != "" {
		database, err := db.Open(dbURL)
		if err != nil {
			return fmt.Errorf("failed to open alert store: %w", err)
		}
		defer database.Close()

		queries, err := db.LoadQueries(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
		store = db.NewAlertStore(queries)
	}

	dispatcher := dispatch.NewDispatcher(
		dispatch.NewWebhookDeliverer(),
		dispatch.WithRetryConfig(retry.Config{
			MaxAttempts:  cfg.DispatchMaxAttempts,
			InitialDelay: cfg.DispatchInitialDelay,
			MaxDelay:     cfg.DispatchMaxDelay,
			Multiplier:   2.0,
			AddJitter:    true,
		}),
		dispatch.WithAttemptTimeout(cfg.DispatchAttemptTimeout),
		dispatch.WithLogger(log),
	)

	eng, err := engine.New(engine.Params{
		Pipeline:   pl,
		Matcher:    matcher,
		Providers:  providers,
		Dispatcher: dispatcher,
		Store:      store,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	input := os.Stdin
	if path, _ := cmd.Flags().GetString("events"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open events file: %w", err)
		}
		defer f.Close()
		input = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := engine.NewPool(eng, cfg.Workers, cfg.QueueSize)
	if err := pool.Start(ctx); err != nil {
		return err
	}

	log.Info("shrike engine started",
		zap.String("version", Version),
		zap.Int("workers", cfg.Workers),
		zap.Int("policies", matcher.Len()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	if err := feedEvents(ctx, input, pool, log); err != nil && ctx.Err() == nil {
		return err
	}

	if err := pool.Stop(30 * time.Second); err != nil {
		return err
	}
	return nil
}

// feedEvents reads NDJSON records and submits them to the pool, retrying
// briefly on backpressure. Malformed lines are logged and skipped.
func feedEvents(ctx context.Context, r io.Reader, pool *engine.Pool, log *zap.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn("skipping malformed event", zap.Error(err))
			continue
		}

		for {
			err := pool.Submit(rec)
			if err == nil {
				break
			}
			if err != engine.ErrQueueFull {
				return err
			}
			select {
			case <-time.After(10 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return scanner.Err()
}
