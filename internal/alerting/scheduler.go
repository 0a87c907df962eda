package alerting

import (
	"context"
	"sync/atomic"
	"time"

	"chainpulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// PhaseRunner is implemented by Evaluator; split out so the scheduler can
// be tested with a fake.
type PhaseRunner interface {
	RunPricePhase(ctx context.Context) error
	RunGasPhase(ctx context.Context) error
	RunWhalePhase(ctx context.Context) error
	RunActivityPhase(ctx context.Context) error
}

// Scheduler drives the evaluator on a fixed interval. Phases run in a
// fixed order; a tick that arrives while the previous one is still
// running is skipped rather than overlapped.
type Scheduler struct {
	runner       PhaseRunner
	trigLog      *TriggerLog
	interval     time.Duration
	pruneEvery   time.Duration
	logRetention time.Duration
	log          *logrus.Logger
	running      atomic.Bool
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewScheduler builds a Scheduler around the given runner.
func NewScheduler(runner PhaseRunner, trigLog *TriggerLog, interval, pruneEvery, logRetention time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		runner:       runner,
		trigLog:      trigLog,
		interval:     interval,
		pruneEvery:   pruneEvery,
		logRetention: logRetention,
		log:          log,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the evaluation loop. The first evaluation happens
// immediately, then on every interval tick.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop signals the loop to exit and waits for the in-flight tick, if
// any, to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	prune := time.NewTicker(s.pruneEvery)
	defer prune.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-s.stopCh:
			s.log.Info("Alert scheduler stopping")
			return
		case <-ctx.Done():
			s.log.Info("Alert scheduler context cancelled")
			return
		case <-prune.C:
			removed := s.trigLog.Prune(s.logRetention, time.Now())
			if removed > 0 {
				s.log.WithField("removed", removed).Info("Pruned stale trigger records")
			}
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full evaluation pass. It is a no-op when a previous pass
// is still in flight.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.TicksSkipped.Inc()
		s.log.Warn("Previous evaluation pass still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"price", s.runner.RunPricePhase},
		{"gas", s.runner.RunGasPhase},
		{"whale", s.runner.RunWhalePhase},
		{"account_activity", s.runner.RunActivityPhase},
	}

	for _, phase := range phases {
		start := time.Now()
		err := phase.run(ctx)
		metrics.RecordAlertPhase(phase.name, time.Since(start))
		if err != nil {
			s.log.WithError(err).WithField("phase", phase.name).Error("Alert phase failed")
		}
	}
}
