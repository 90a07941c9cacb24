// Command member-export enumerates the members of a Telegram channel or
// supergroup through a tdlib gateway and writes them to a CSV file or
// SQLite database. The listing API caps every filtered query, so the
// tool issues one query per filter of a search alphabet and merges the
// results by user id; the final set is a best-effort cover, not a
// guaranteed-complete roster.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/channelvisor/tg-members/pkg/enumerate"
	"github.com/channelvisor/tg-members/pkg/export"
	"github.com/channelvisor/tg-members/pkg/logging"
	"github.com/channelvisor/tg-members/pkg/metrics"
	"github.com/channelvisor/tg-members/pkg/telegram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	overrides := defaultConfig()

	cmd := &cobra.Command{
		Use:   "member-export <channel>",
		Short: "Enumerate channel members through a capped listing API and export them",
		Long: `member-export discovers as many members of a channel as filtered
queries allow. The empty search filter yields the bulk of the collection
up to the server cap; single-letter and digit filters surface members
that sort past it. Coverage against the channel's reported size is
logged but is advisory only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &cfg, &overrides)
			return run(cmd.Context(), args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&overrides.Export.Path, "out", "", "output path (default: generated filename)")
	cmd.Flags().StringVar(&overrides.Export.Format, "format", "csv", "export format: csv or sqlite")
	cmd.Flags().IntVar(&overrides.Enumeration.PageSize, "page-size", 200, "participants requested per call")
	cmd.Flags().IntVar(&overrides.Enumeration.IntervalMS, "interval-ms", 500, "minimum delay between calls in milliseconds")
	cmd.Flags().IntVar(&overrides.Enumeration.Workers, "workers", 1, "filters drained concurrently")
	cmd.Flags().IntVar(&overrides.Enumeration.MaxPerFilter, "max-per-filter", 10000, "request budget guard per filter")
	cmd.Flags().IntVar(&overrides.Enumeration.ProgressEvery, "progress-every", 5, "log progress after every Nth filter")
	cmd.Flags().StringVar(&overrides.Metrics.Addr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&overrides.Log.Level, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&overrides.Log.Pretty, "pretty", false, "human-readable log output")
	cmd.Flags().StringVar(&overrides.Log.File, "log-file", "", "additionally append JSON logs to this file")

	return cmd
}

// applyFlagOverrides copies explicitly set flags over the file config.
func applyFlagOverrides(cmd *cobra.Command, cfg, overrides *Config) {
	if cmd.Flags().Changed("out") {
		cfg.Export.Path = overrides.Export.Path
	}
	if cmd.Flags().Changed("format") {
		cfg.Export.Format = overrides.Export.Format
	}
	if cmd.Flags().Changed("page-size") {
		cfg.Enumeration.PageSize = overrides.Enumeration.PageSize
	}
	if cmd.Flags().Changed("interval-ms") {
		cfg.Enumeration.IntervalMS = overrides.Enumeration.IntervalMS
	}
	if cmd.Flags().Changed("workers") {
		cfg.Enumeration.Workers = overrides.Enumeration.Workers
	}
	if cmd.Flags().Changed("max-per-filter") {
		cfg.Enumeration.MaxPerFilter = overrides.Enumeration.MaxPerFilter
	}
	if cmd.Flags().Changed("progress-every") {
		cfg.Enumeration.ProgressEvery = overrides.Enumeration.ProgressEvery
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = overrides.Metrics.Addr
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = overrides.Log.Level
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = overrides.Log.Pretty
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = overrides.Log.File
	}
}

func run(ctx context.Context, channelRef string, cfg Config) error {
	logger, err := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
		Output: os.Stderr,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving Prometheus metrics")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		defer redisClient.Close()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	clientCfg := telegram.DefaultConfig(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	clientCfg.Redis = redisClient
	client, err := telegram.New(clientCfg)
	if err != nil {
		return err
	}

	orch := enumerate.New(client, enumerate.Config{
		PageSize:      cfg.Enumeration.PageSize,
		MaxPerFilter:  cfg.Enumeration.MaxPerFilter,
		MinInterval:   time.Duration(cfg.Enumeration.IntervalMS) * time.Millisecond,
		Alphabet:      cfg.Enumeration.Alphabet,
		Workers:       cfg.Enumeration.Workers,
		ProgressEvery: cfg.Enumeration.ProgressEvery,
		OnProgress: func(filter string, fraction float64, unique int) {
			logger.Info().
				Str("filter", filter).
				Int("percent", int(fraction*100)).
				Int("unique", unique).
				Msg("Enumeration progress")
		},
	})

	result, runErr := orch.Run(ctx, channelRef)

	// Failed and cancelled runs keep their partial results; export
	// whatever was collected before reporting the outcome.
	if result.Unique() > 0 {
		if err := exportResult(ctx, cfg, channelLabel(result, channelRef), result); err != nil {
			if runErr != nil {
				logger.Error().Err(err).Msg("Export failed")
				return runErr
			}
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if result.Status == enumerate.StatusCancelled {
		logger.Warn().Int("unique", result.Unique()).Msg("Run cancelled, partial export written")
		return nil
	}

	logSummary(logger, result)
	return nil
}

func channelLabel(result *enumerate.Result, fallback string) string {
	if result.Channel != nil {
		return result.Channel.Label()
	}
	return fallback
}

func exportResult(ctx context.Context, cfg Config, label string, result *enumerate.Result) error {
	switch cfg.Export.Format {
	case "csv":
		path := cfg.Export.Path
		if path == "" {
			path = export.DefaultFilename(label, "csv")
		}
		return export.NewCSVExporter().Export(path, label, result.Members)
	case "sqlite":
		path := cfg.Export.Path
		if path == "" {
			path = export.DefaultFilename(label, "db")
		}
		return export.NewSQLiteExporter().Export(ctx, path, label, result.Members)
	default:
		return fmt.Errorf("unknown export format %q (want csv or sqlite)", cfg.Export.Format)
	}
}

func logSummary(logger zerolog.Logger, result *enumerate.Result) {
	event := logger.Info().
		Int("unique", result.Unique()).
		Int("calls", result.Calls).
		Int("filters_completed", result.FiltersCompleted)

	if coverage := result.Coverage(); coverage > 0 {
		// Advisory: the search alphabet has no completeness guarantee.
		event = event.Float64("coverage", coverage)
	}
	if len(result.FilterErrors) > 0 {
		failed := make([]string, 0, len(result.FilterErrors))
		for _, fe := range result.FilterErrors {
			failed = append(failed, fe.Filter)
		}
		event = event.Strs("failed_filters", failed)
	}

	event.Msg("Export complete")
}
