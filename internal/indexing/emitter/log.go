package emitter

import (
	"context"
	"log/slog"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
)

// LogEmitter writes updates to the structured log.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(ctx context.Context, update domain.SyncUpdate) error {
	attrs := []any{"status", update.Status, "height", update.Height}
	if update.Data != nil {
		attrs = append(attrs, "transactions", len(update.Data.Transactions))
		if update.Data.AggregateBalance != nil {
			attrs = append(attrs, "balance", update.Data.AggregateBalance.String())
		}
	}
	e.log.Info("Sync update", attrs...)
	metrics.UpdatesEmitted.WithLabelValues("log").Inc()
	return nil
}

func (e *LogEmitter) Close() error { return nil }
