package routegen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

// fakeGenerator blocks until released, then returns the configured
// result.
type fakeGenerator struct {
	release chan struct{}
	route   string
	err     error
	calls   atomic.Int64
}

func newFakeGenerator(route string, err error) *fakeGenerator {
	return &fakeGenerator{release: make(chan struct{}), route: route, err: err}
}

func (g *fakeGenerator) GenerateRoute(ctx context.Context, _ domain.TripRequest) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.route, g.err
}

func testRequest() domain.TripRequest {
	return domain.TripRequest{
		Interests: "history, street art",
		Hours:     2.5,
		Location:  domain.Location{Latitude: 56.326, Longitude: 44.007},
	}
}

func TestLaunchDeliversExactlyOnce(t *testing.T) {
	t.Parallel()

	gen := newFakeGenerator("маршрут", nil)
	sup := NewSupervisor(gen, 0, nil)

	var deliveries atomic.Int64
	done := make(chan struct{})
	err := sup.Launch(1, testRequest(), func(chatID int64, route string, took time.Duration, err error) {
		deliveries.Add(1)
		if chatID != 1 {
			t.Errorf("deliver chatID = %d, want 1", chatID)
		}
		if route != "маршрут" || err != nil {
			t.Errorf("deliver got (%q, %v)", route, err)
		}
		close(done)
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	close(gen.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver was never called")
	}
	sup.Close()
	if deliveries.Load() != 1 {
		t.Fatalf("deliver called %d times, want 1", deliveries.Load())
	}
}

func TestLaunchRejectsDuplicate(t *testing.T) {
	t.Parallel()

	gen := newFakeGenerator("маршрут", nil)
	sup := NewSupervisor(gen, 0, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	if err := sup.Launch(5, testRequest(), func(int64, string, time.Duration, error) {
		wg.Done()
	}); err != nil {
		t.Fatalf("first Launch failed: %v", err)
	}

	err := sup.Launch(5, testRequest(), func(int64, string, time.Duration, error) {
		t.Error("duplicate launch must not deliver")
	})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("duplicate Launch = %v, want ErrAlreadyRunning", err)
	}
	if sup.Inflight() != 1 {
		t.Fatalf("inflight = %d, want 1", sup.Inflight())
	}

	close(gen.release)
	wg.Wait()
	sup.Close()

	if gen.calls.Load() != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls.Load())
	}
	if sup.Inflight() != 0 {
		t.Fatalf("inflight after completion = %d, want 0", sup.Inflight())
	}
}

func TestLaunchDeliversGenerationError(t *testing.T) {
	t.Parallel()

	genErr := errors.New("model unreachable")
	gen := newFakeGenerator("", genErr)
	sup := NewSupervisor(gen, 0, nil)

	done := make(chan error, 1)
	if err := sup.Launch(2, testRequest(), func(_ int64, _ string, _ time.Duration, err error) {
		done <- err
	}); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	close(gen.release)

	select {
	case err := <-done:
		if !errors.Is(err, genErr) {
			t.Fatalf("delivered error = %v, want %v", err, genErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver was never called")
	}
	sup.Close()
}

// panicGenerator always panics.
type panicGenerator struct{}

func (panicGenerator) GenerateRoute(context.Context, domain.TripRequest) (string, error) {
	panic("model client bug")
}

func TestLaunchDeliversOnPanic(t *testing.T) {
	t.Parallel()

	sup := NewSupervisor(panicGenerator{}, 0, nil)

	done := make(chan error, 1)
	if err := sup.Launch(3, testRequest(), func(_ int64, _ string, _ time.Duration, err error) {
		done <- err
	}); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrGeneration) {
			t.Fatalf("delivered error = %v, want ErrGeneration", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver was never called after panic")
	}
	sup.Close()
	if sup.Inflight() != 0 {
		t.Fatalf("inflight after panic = %d, want 0", sup.Inflight())
	}
}

func TestLaunchHonorsTimeout(t *testing.T) {
	t.Parallel()

	gen := newFakeGenerator("never", nil) // release never closed
	sup := NewSupervisor(gen, 50*time.Millisecond, nil)

	done := make(chan error, 1)
	if err := sup.Launch(4, testRequest(), func(_ int64, _ string, _ time.Duration, err error) {
		done <- err
	}); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a deadline error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver was never called after timeout")
	}
	sup.Close()
}
