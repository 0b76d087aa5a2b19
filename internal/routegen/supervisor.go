package routegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

// ErrAlreadyRunning is returned when a launch is requested while a task
// for the same chat id is still in flight. The state machine's waiting
// stage makes this unreachable in practice; if it ever happens the
// duplicate request is dropped rather than crashing the process.
var ErrAlreadyRunning = errors.New("generation already running for chat")

// DeliverFunc receives the outcome of one generation task. It is called
// exactly once per launch, with either the route text or an error.
type DeliverFunc func(chatID int64, route string, took time.Duration, err error)

// Supervisor launches background generation tasks and guarantees at
// most one in-flight task per chat id. It never blocks the caller.
type Supervisor struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

// NewSupervisor creates a supervisor. A zero timeout leaves the model
// call without a deadline, matching the original behavior; operators can
// set one through configuration.
func NewSupervisor(gen Generator, timeout time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		gen:      gen,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[int64]struct{}),
	}
}

// Launch starts a generation task for the snapshot and returns
// immediately. deliver is invoked from the task goroutine when the call
// finishes, succeeds or fails, including when the generator panics.
func (s *Supervisor) Launch(chatID int64, req domain.TripRequest, deliver DeliverFunc) error {
	s.mu.Lock()
	if _, dup := s.inflight[chatID]; dup {
		s.mu.Unlock()
		s.logger.Error("duplicate generation launch dropped", "chat_id", chatID)
		return ErrAlreadyRunning
	}
	s.inflight[chatID] = struct{}{}
	s.mu.Unlock()

	jobID := uuid.NewString()
	s.logger.Info("generation launched",
		"chat_id", chatID,
		"job_id", jobID,
		"interests", req.Interests,
		"hours", req.Hours)

	s.wg.Add(1)
	go s.run(chatID, jobID, req, deliver)
	return nil
}

func (s *Supervisor) run(chatID int64, jobID string, req domain.TripRequest, deliver DeliverFunc) {
	start := time.Now()
	var (
		route string
		err   error
	)
	// The in-flight slot is released before deliver so a follow-up cycle
	// can launch again, and deliver happens exactly once even if the
	// generator panics.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in generator: %v", ErrGeneration, r)
			s.logger.Error("generation panicked", "chat_id", chatID, "job_id", jobID, "panic", r)
		}
		s.mu.Lock()
		delete(s.inflight, chatID)
		s.mu.Unlock()
		deliver(chatID, route, time.Since(start), err)
		s.wg.Done()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	route, err = s.gen.GenerateRoute(ctx, req)
	if err != nil {
		s.logger.Error("generation failed", "chat_id", chatID, "job_id", jobID, "took", time.Since(start), "error", err)
	} else {
		s.logger.Info("generation completed", "chat_id", chatID, "job_id", jobID, "took", time.Since(start), "route_len", len(route))
	}
}

// Inflight reports the number of generation tasks currently running.
func (s *Supervisor) Inflight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Close waits for all in-flight tasks to finish delivering. Used during
// graceful shutdown so results are not silently lost.
func (s *Supervisor) Close() {
	s.wg.Wait()
}
