package worker

import (
	"context"
	"errors"
	"time"

	"sjsage522/eventworker/logger"
)

// Runner executes one collection run.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Worker triggers a run on a fixed interval
type Worker struct {
	ctx           context.Context
	runner        Runner
	crawlInterval time.Duration
	log           *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, runner Runner, crawlInterval time.Duration) *Worker {
	return &Worker{
		ctx:           ctx,
		runner:        runner,
		crawlInterval: crawlInterval,
		log:           logger.ForWorker(),
	}
}

// Start runs immediately and then every interval until the context is
// cancelled. Run failures are logged and do not stop the loop.
func (w *Worker) Start() error {
	for {
		start := time.Now()
		if _, err := w.runner.Run(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.WithError(err).Error().Msg("scheduled run failed")
		}
		w.log.Debug().Dur("elapsed", time.Since(start)).Dur("next_in", w.crawlInterval).Msg("waiting for next run")

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.crawlInterval):
		}
	}
}
