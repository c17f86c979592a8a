package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs one delivery pass.
type Sweeper interface {
	Sweep(ctx context.Context) Result
}

var (
	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrNotRunning is returned when stopping an idle scheduler.
	ErrNotRunning = errors.New("scheduler not running")
)

// Scheduler triggers sweeps on a cron schedule and on demand.
// Cron runs are not serialized, so a slow sweep can overlap the next one.
type Scheduler struct {
	sweeper Sweeper
	spec    string
	log     zerolog.Logger

	mu       sync.Mutex
	running  bool
	cron     *cron.Cron
	cancel   context.CancelFunc
	loopDone chan struct{}
	notifyCh chan struct{}
}

var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func New(sweeper Sweeper, spec string, log zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = "@every 1m"
	}
	if _, err := specParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Scheduler{
		sweeper:  sweeper,
		spec:     spec,
		log:      log,
		notifyCh: make(chan struct{}, 1),
	}, nil
}

// Notify triggers an immediate sweep. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

// Start schedules sweeps and runs one right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLog := s.log.With().Str("subsystem", "cron").Logger()
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cron.PrintfLogger(&cronLog)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(&cronLog))),
	)
	if _, err := c.AddFunc(s.spec, func() { s.sweeper.Sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.running = true

	c.Start()
	go s.loop(runCtx, s.loopDone)
	s.Notify()

	s.log.Info().Str("schedule", s.spec).Msg("scheduler started")
	return nil
}

// Stop cancels pending work and waits for running sweeps to return.
// IsRunning reports false as soon as Stop begins.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	cancel, c, loopDone := s.cancel, s.cron, s.loopDone
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	<-loopDone
	s.log.Info().Msg("scheduler stopped")
	return nil
}

// IsRunning reports the scheduler state.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notifyCh:
			s.log.Debug().Msg("sweep triggered by notification")
			s.sweeper.Sweep(ctx)
		}
	}
}
