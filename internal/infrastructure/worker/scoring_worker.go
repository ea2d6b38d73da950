package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LeadScorer is the part of the lead service the worker drives
type LeadScorer interface {
	ScorePending(ctx context.Context, limit int) (int, error)
}

// DefaultScoringConfig returns default scoring polling settings
func DefaultScoringConfig() PollConfig {
	return PollConfig{
		PollInterval: time.Minute,
		BatchSize:    5,
		Timeout:      90 * time.Second,
	}
}

// LeadScoringWorker scores leads that have no score yet
type LeadScoringWorker struct {
	*poller
	leads LeadScorer
}

// NewLeadScoringWorker creates a new scoring worker
func NewLeadScoringWorker(config PollConfig, leads LeadScorer, logger *zap.Logger) *LeadScoringWorker {
	w := &LeadScoringWorker{leads: leads}
	w.poller = &poller{
		name:   "LeadScoringWorker",
		config: config.withDefaults(DefaultScoringConfig()),
		batch:  w.scoreBatch,
		logger: logger,
	}
	return w
}

func (w *LeadScoringWorker) scoreBatch(ctx context.Context) error {
	batchCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	scored, err := w.leads.ScorePending(batchCtx, w.config.BatchSize)
	for i := 0; i < scored; i++ {
		w.record(true)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		w.record(false)
		return err
	}
	if scored > 0 {
		w.logger.Info("Leads scored", zap.Int("count", scored))
	}
	return nil
}
