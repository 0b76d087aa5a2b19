package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

func TestUpdateCreatesSessionCollectingInterests(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var stage domain.Stage
	err := reg.Update(42, func(s *domain.Session) error {
		stage = s.Stage
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if stage != domain.StageCollectingInterests {
		t.Fatalf("new session stage = %s, want collecting_interests", stage)
	}
}

func TestConsumeDoneIdempotent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var epoch uint64
	_ = reg.Update(7, func(s *domain.Session) error {
		s.Stage = domain.StageWaiting
		epoch = s.Epoch
		return nil
	})

	if !reg.FinishGeneration(7, epoch) {
		t.Fatal("FinishGeneration should apply to a waiting session")
	}
	if !reg.ConsumeDone(7) {
		t.Fatal("first ConsumeDone should return true")
	}
	if reg.ConsumeDone(7) {
		t.Fatal("second ConsumeDone should return false")
	}
	s, ok := reg.Peek(7)
	if !ok {
		t.Fatal("session disappeared")
	}
	if s.Stage != domain.StageIdle {
		t.Fatalf("stage after consume = %s, want idle", s.Stage)
	}
}

func TestFinishGenerationIgnoresDetachedSession(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var epoch uint64
	_ = reg.Update(9, func(s *domain.Session) error {
		s.Stage = domain.StageWaiting
		epoch = s.Epoch
		return nil
	})

	// Cancel while the task is in flight.
	reg.Reset(9)

	if reg.FinishGeneration(9, epoch) {
		t.Fatal("FinishGeneration should not apply to a reset session")
	}
	if reg.ConsumeDone(9) {
		t.Fatal("ConsumeDone should see no completed generation")
	}
	s, _ := reg.Peek(9)
	if s.Stage != domain.StageIdle {
		t.Fatalf("stage = %s, want idle", s.Stage)
	}
}

func TestFinishGenerationIgnoresStaleEpoch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var stale uint64
	_ = reg.Update(11, func(s *domain.Session) error {
		s.Stage = domain.StageWaiting
		stale = s.Epoch
		return nil
	})

	// The user cancels and completes a whole new cycle.
	reg.Reset(11)
	_ = reg.Update(11, func(s *domain.Session) error {
		s.Stage = domain.StageWaiting
		return nil
	})

	if reg.FinishGeneration(11, stale) {
		t.Fatal("stale delivery must not attach to the new cycle")
	}
}

func TestFinishGenerationUnknownSession(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if reg.FinishGeneration(12345, 0) {
		t.Fatal("FinishGeneration on unknown session should be a no-op")
	}
}

func TestConcurrentSessionsStayIsolated(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	const sessions = 100

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = reg.Update(id, func(s *domain.Session) error {
				s.Interests = fmt.Sprintf("interests-%d", id)
				s.Stage = domain.StageCollectingTime
				return nil
			})
		}(int64(i))
	}
	wg.Wait()

	if reg.Len() != sessions {
		t.Fatalf("registry has %d sessions, want %d", reg.Len(), sessions)
	}
	for i := 0; i < sessions; i++ {
		s, ok := reg.Peek(int64(i))
		if !ok {
			t.Fatalf("session %d missing", i)
		}
		if want := fmt.Sprintf("interests-%d", i); s.Interests != want {
			t.Fatalf("session %d interests = %q, want %q", i, s.Interests, want)
		}
		if s.Stage != domain.StageCollectingTime {
			t.Fatalf("session %d stage = %s", i, s.Stage)
		}
	}
}

func TestConcurrentResetAndFinish(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	const rounds = 200

	for i := 0; i < rounds; i++ {
		id := int64(i)
		var epoch uint64
		_ = reg.Update(id, func(s *domain.Session) error {
			s.Stage = domain.StageWaiting
			epoch = s.Epoch
			return nil
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Reset(id)
		}()
		go func() {
			defer wg.Done()
			reg.FinishGeneration(id, epoch)
		}()
		wg.Wait()

		// Whatever the interleaving, the session must be internally
		// consistent: either idle with no done flag, or waiting+done.
		s, ok := reg.Peek(id)
		if !ok {
			t.Fatalf("session %d missing", id)
		}
		switch {
		case s.Stage == domain.StageIdle && !s.GenerationDone:
		case s.Stage == domain.StageWaiting && s.GenerationDone:
		default:
			t.Fatalf("inconsistent state: stage=%s done=%v", s.Stage, s.GenerationDone)
		}
	}
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	base := time.Now()
	reg.now = func() time.Time { return base }

	_ = reg.Update(1, func(s *domain.Session) error { return nil })
	_ = reg.Update(2, func(s *domain.Session) error { return nil })

	// Session 2 stays active, session 1 goes stale.
	reg.now = func() time.Time { return base.Add(30 * time.Minute) }
	_ = reg.Update(2, func(s *domain.Session) error { return nil })

	reg.now = func() time.Time { return base.Add(45 * time.Minute) }
	removed := reg.sweep(40 * time.Minute)
	if removed != 1 {
		t.Fatalf("sweep removed %d sessions, want 1", removed)
	}
	if _, ok := reg.Peek(1); ok {
		t.Fatal("stale session survived sweep")
	}
	if _, ok := reg.Peek(2); !ok {
		t.Fatal("active session removed by sweep")
	}
}
