package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Target is one entity family the sweeper expires. Implementations are
// the RFQ engine, the orderbook index and the predicate validator.
type Target interface {
	Name() string
	Sweep(ctx context.Context) (int, error)
}

// Func adapts a sweep function to a named Target.
type Func struct {
	Entity string
	Run    func(ctx context.Context) (int, error)
}

func (f Func) Name() string                           { return f.Entity }
func (f Func) Sweep(ctx context.Context) (int, error) { return f.Run(ctx) }

// Sweeper drives the periodic expiry pass. Transitions are CAS-based in
// the targets, so overlapping or repeated runs are harmless; a failing
// target is logged and skipped, never aborting the batch.
type Sweeper struct {
	targets  []Target
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
}

func New(logger *zap.Logger, interval time.Duration, targets ...Target) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		targets:  targets,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop or context cancellation.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper.started",
		zap.Duration("interval", s.interval),
		zap.Int("targets", len(s.targets)),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper.stopped (manual stop)")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// RunOnce executes a single pass over every target.
func (s *Sweeper) RunOnce(ctx context.Context) {
	start := time.Now()
	total := 0
	for _, t := range s.targets {
		n, err := t.Sweep(ctx)
		if err != nil {
			s.logger.Warn("sweeper.target_failed",
				zap.String("target", t.Name()),
				zap.Error(err))
			continue
		}
		total += n
	}
	if total > 0 {
		s.logger.Info("sweeper.pass_complete",
			zap.Int("expired_items", total),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
