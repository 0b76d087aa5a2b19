// Package session provides the in-memory registry of active sessions.
// It is the only shared mutable state in the bot; every read or write of
// a session record happens under that session's shard lock, so operations
// against one chat id appear atomic while different chat ids proceed in
// parallel.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

const shardCount = 16

type shard struct {
	mu       sync.Mutex
	sessions map[int64]*domain.Session
}

// Registry maps chat ids to live session records.
type Registry struct {
	shards [shardCount]shard
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{now: time.Now}
	for i := range r.shards {
		r.shards[i].sessions = make(map[int64]*domain.Session)
	}
	return r
}

func (r *Registry) shard(chatID int64) *shard {
	idx := uint64(chatID) % shardCount
	return &r.shards[idx]
}

// Update runs fn on the session for chatID under its shard lock,
// creating the session in the interests stage if it does not exist yet.
// fn must not block; outbound sends and generation launches happen after
// Update returns.
func (r *Registry) Update(chatID int64, fn func(s *domain.Session) error) error {
	sh := r.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[chatID]
	if !ok {
		s = &domain.Session{
			ChatID: chatID,
			Stage:  domain.StageCollectingInterests,
		}
		sh.sessions[chatID] = s
	}
	s.LastActivity = r.now()
	return fn(s)
}

// Reset detaches the session's visible state: all collected fields are
// discarded and the stage returns to idle. An in-flight generation is
// not touched; its eventual delivery becomes a no-op.
func (r *Registry) Reset(chatID int64) {
	sh := r.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[chatID]
	if !ok {
		return
	}
	s.ClearInput()
	s.Stage = domain.StageIdle
	s.LastActivity = r.now()
}

// FinishGeneration flips the done flag if the session is still waiting
// for the cycle the task was launched in. A false return means the
// session was reset, removed, or restarted while the task ran, and the
// caller must drop the result.
func (r *Registry) FinishGeneration(chatID int64, epoch uint64) bool {
	sh := r.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[chatID]
	if !ok || s.Stage != domain.StageWaiting || s.Epoch != epoch {
		return false
	}
	s.GenerationDone = true
	return true
}

// ConsumeDone atomically reads and clears the done flag. On the first
// call after a completed generation it returns true and moves the
// session back to idle; subsequent calls return false.
func (r *Registry) ConsumeDone(chatID int64) bool {
	sh := r.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[chatID]
	if !ok || !s.GenerationDone {
		return false
	}
	s.ClearInput()
	s.Stage = domain.StageIdle
	s.LastActivity = r.now()
	return true
}

// Peek returns a copy of the session record, if present. Used by tests
// and the stats endpoint; never hands out the live pointer.
func (r *Registry) Peek(chatID int64) (domain.Session, bool) {
	sh := r.shard(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[chatID]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

// Len reports the number of tracked sessions across all shards.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// sweep removes sessions with no activity since the cutoff. Waiting
// sessions whose result was never picked up are removed too; the done
// flag dies with them.
func (r *Registry) sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	removed := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if s.LastActivity.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
				slog.Debug("expired session removed", "chat_id", id, "stage", s.Stage.String())
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
