package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/aggregator"
	"github.com/yanun0323/logs"
)

const DefaultInterval = 30 * time.Second

// Scheduler drives periodic sync cycles. The periodic path runs regardless
// of push-channel state; it is the resilience path when the push channel is
// down. An out-of-band trigger runs one extra cycle without resetting the
// timer phase.
type Scheduler struct {
	interval time.Duration
	run      func(ctx context.Context) aggregator.Result
	onCycle  func(result aggregator.Result)

	trigger chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	running atomic.Bool
}

// New creates a scheduler. onCycle observes every completed cycle, success
// or not; it may be nil.
func New(interval time.Duration, run func(ctx context.Context) aggregator.Result, onCycle func(aggregator.Result)) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		onCycle:  onCycle,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the timer loop. The first periodic cycle fires one full
// interval after Start; callers wanting an immediate cycle use Trigger.
func (s *Scheduler) Start(parent context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.loop(ctx)
		s.running.Store(false)
	}()
}

// Stop halts the timer and waits for any in-progress cycle to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// Trigger requests one immediate out-of-band cycle. Coalesces when a
// trigger is already pending.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			logs.Info("out-of-band sync triggered")
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result := s.run(ctx)
	if s.onCycle != nil {
		s.onCycle(result)
	}
}
