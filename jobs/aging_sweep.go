package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stocktrack/stocktrack/internal/aging"
)

// NewAgingSweepHandler adapts the aging sweeper to an Asynq handler.
func NewAgingSweepHandler(sweeper *aging.Sweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		report, err := sweeper.Run(ctx)
		if err != nil {
			logger.Error("aging sweep", slog.Any("error", err))
			return err
		}
		logger.Info("aging sweep task done",
			slog.Int("scanned", report.Scanned),
			slog.Int("updated", report.Updated),
			slog.Int("alerted", report.Alerted))
		return nil
	}
}
