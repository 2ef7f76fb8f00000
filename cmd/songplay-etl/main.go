package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"songplay_etl/internal/config"
	"songplay_etl/internal/logging"
	"songplay_etl/internal/metrics"
	"songplay_etl/internal/pipeline"
	"songplay_etl/internal/storage"
	"songplay_etl/internal/transform"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (environment variables override it)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "songplay-etl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	source, err := storage.OpenStore(cfg.SourceRoot, cfg.AWS.Options(), logger)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	destination, err := storage.OpenStore(cfg.DestinationRoot, cfg.AWS.Options(), logger)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}

	logger.Info("starting songplay ETL",
		zap.String("source", source.URI("")),
		zap.String("destination", destination.URI("")),
		zap.Int("cpus", runtime.NumCPU()),
		zap.Duration("timeout", cfg.RunTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	m := metrics.NewMetrics()
	p := pipeline.New(source, destination, pipeline.Options{
		SongDataPrefix: cfg.SongDataPrefix,
		LogDataPrefix:  cfg.LogDataPrefix,
		Workers:        cfg.Workers,
		TempDir:        cfg.TempDir,
		MaxRowsPerFile: cfg.MaxRowsPerFile,
		Calendar:       transform.NewCalendar(loc),
	}, m, logger)

	stats, runErr := p.Run(ctx)

	if cfg.StatsPath != "" {
		if err := stats.WriteJSON(cfg.StatsPath); err != nil {
			logger.Warn("failed to write stats", zap.Error(err))
		} else {
			logger.Info("stats written", zap.String("path", cfg.StatsPath))
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	logger.Info("ETL pipeline completed successfully", zap.String("run_id", stats.RunID))
	return nil
}
