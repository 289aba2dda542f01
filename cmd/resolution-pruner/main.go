// Command resolution-pruner deletes old resolver audit entries.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spacebook/spacebook-api/internal/config"
	"github.com/spacebook/spacebook-api/internal/domain/resolution"
	"github.com/spacebook/spacebook-api/internal/pkg/database"
	"github.com/spacebook/spacebook-api/internal/pkg/logger"
)

type pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	once := flag.Bool("once", false, "prune a single time and exit")
	interval := flag.Duration("interval", time.Hour, "time between runs")
	retention := flag.Duration("retention", cfg.ResolutionRetention, "keep entries newer than this")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	if db == nil {
		log.Fatal().Msg("DATABASE_URL is not set, nothing to prune")
	}
	defer database.ClosePostgres(db)

	repo := resolution.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create resolution_attempts table")
	}
	svc := resolution.NewService(repo)

	log.Info().
		Dur("retention", *retention).
		Dur("interval", *interval).
		Bool("once", *once).
		Msg("Starting resolution-pruner")

	if *once {
		if _, err := pruneOnce(ctx, svc, *retention); err != nil {
			os.Exit(1)
		}
		return
	}
	loop(ctx, svc, *retention, *interval)
	log.Info().Msg("resolution-pruner stopped")
}

// loop prunes right away and then on every tick until ctx is done.
func loop(ctx context.Context, p pruner, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, _ = pruneOnce(ctx, p, retention)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneOnce(ctx context.Context, p pruner, retention time.Duration) (int64, error) {
	start := time.Now()
	n, err := p.Prune(ctx, retention)
	if err != nil {
		log.Error().Err(err).Msg("Prune failed")
		return 0, err
	}
	log.Info().
		Int64("deleted", n).
		Dur("took", time.Since(start)).
		Msg("Pruned resolution entries")
	return n, nil
}

func setupLogger(cfg *config.Config) {
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to initialise logger")
	}
}
