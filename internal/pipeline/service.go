package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ehr/refinery/internal/platform/notify"
	"github.com/ehr/refinery/internal/platform/runlock"
)

// ErrRunInProgress is returned when a run is already going, in this process
// or, through the run lock, in another.
var ErrRunInProgress = errors.New("a refinement run is already in progress")

// Service serializes runs, publishes their summaries and remembers the last
// one for the ops API.
type Service struct {
	coord    *Coordinator
	lock     runlock.Locker
	notifier notify.Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *Summary
}

func NewService(coord *Coordinator, lock runlock.Locker, notifier notify.Notifier, logger zerolog.Logger) *Service {
	if lock == nil {
		lock = runlock.Noop{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{coord: coord, lock: lock, notifier: notifier, logger: logger}
}

// Run refines everything outstanding and blocks until done.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	if !s.claim() {
		return nil, ErrRunInProgress
	}
	defer s.done()
	return s.run(ctx)
}

// Start begins a run in the background. The run outlives ctx's
// cancellation; ctx only supplies values.
func (s *Service) Start(ctx context.Context) error {
	if !s.claim() {
		return ErrRunInProgress
	}
	go func() {
		defer s.done()
		if _, err := s.run(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error().Err(err).Msg("background run failed")
		}
	}()
	return nil
}

func (s *Service) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) done() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context) (*Summary, error) {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer func() {
		// The run's context may already be done; release on a fresh one.
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("release run lock")
		}
	}()

	sum, runErr := s.coord.Run(ctx)
	if sum != nil {
		s.mu.Lock()
		s.last = sum
		s.mu.Unlock()
		s.publish(context.WithoutCancel(ctx), sum)
	}
	if runErr != nil {
		return sum, fmt.Errorf("refinement run: %w", runErr)
	}
	return sum, nil
}

// Running reports whether this process has a run in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the summary of the most recent run, or nil.
func (s *Service) Last() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) publish(ctx context.Context, sum *Summary) {
	body, err := json.Marshal(sum)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode run summary")
		return
	}
	if err := s.notifier.Notify(ctx, notify.Message{Key: "refinery.run", Body: body}); err != nil {
		s.logger.Warn().Err(err).Msg("publish run summary")
	}
}
