package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RecurringScheduler turns ScheduleRecurring specs into periodic dispatches.
// Dispatches happen as the internal caller, exempt from rate limits.
type RecurringScheduler struct {
	queue *Queue
	log   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRecurringScheduler(q *Queue, logger *zerolog.Logger) *RecurringScheduler {
	l := logger.With().Str("component", "recurring_scheduler").Logger()
	return &RecurringScheduler{queue: q, log: &l, done: make(chan struct{})}
}

// Start begins one goroutine per recurring spec. Calling Start twice has
// no effect.
func (s *RecurringScheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *RecurringScheduler) loop() {
	defer close(s.done)

	specs := s.queue.recurring
	if len(specs) == 0 {
		s.log.Info().Msg("no recurring jobs configured")
		<-s.ctx.Done()
		return
	}

	tickers := make([]*time.Ticker, len(specs))
	cases := make([]<-chan time.Time, len(specs))
	for i, spec := range specs {
		tickers[i] = time.NewTicker(spec.interval)
		cases[i] = tickers[i].C
		s.log.Info().Str("hook", spec.hook).Dur("interval", spec.interval).Msg("recurring job armed")
	}
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Fan the tickers into a single channel so one goroutine drives all specs.
	fired := make(chan int)
	for i := range cases {
		go func(i int, c <-chan time.Time) {
			for {
				select {
				case <-s.ctx.Done():
					return
				case <-c:
					select {
					case fired <- i:
					case <-s.ctx.Done():
						return
					}
				}
			}
		}(i, cases[i])
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case i := <-fired:
			spec := specs[i]
			if _, err := s.queue.DispatchArgs(s.ctx, spec.hook, spec.args, time.Now()); err != nil {
				s.log.Error().Err(err).Str("hook", spec.hook).Msg("recurring dispatch failed")
			}
		}
	}
}

// Stop cancels the scheduler and waits for the loop to finish. Idempotent.
func (s *RecurringScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
}
