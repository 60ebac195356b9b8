package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/equiptrack"
	"github.com/poiesic/equiptrack/reindex"
	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

// scheduleReindex starts a cron scheduler that rebuilds the similarity
// index on schedule. Overlapping runs are skipped. The caller stops the
// returned scheduler.
func scheduleReindex(ctx context.Context, app *equiptrack.App, schedule string) (*cron.Cron, error) {
	logger := cronLogger{logger: slog.Default().With("component", "scheduler")}
	scheduler := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	_, err := scheduler.AddFunc(schedule, func() {
		runScheduledReindex(ctx, app, logger.logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reindex schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	logger.logger.Info("scheduled reindex", "schedule", schedule)
	return scheduler, nil
}

func runScheduledReindex(ctx context.Context, app *equiptrack.App, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	reindexer, err := app.NewReindexer(reindex.DefaultConfig(), io.Discard)
	if err != nil {
		logger.Error("failed to create reindexer", "err", err)
		return
	}
	report, err := reindexer.Run(ctx)
	if err != nil {
		logger.Error("scheduled reindex failed", "err", err)
		return
	}
	logger.Info("scheduled reindex finished",
		"total", report.Total, "indexed", report.Indexed, "failed", report.Failed(), "elapsed", report.Elapsed)
}
