// Package domain holds the core types shared across the bot.
package domain

import (
	"time"
)

// Stage is the current phase of a session's input-collection cycle.
type Stage int

const (
	// StageIdle means no collection is in progress; the user must start
	// a new cycle explicitly.
	StageIdle Stage = iota
	// StageCollectingInterests waits for the free-text interests message.
	StageCollectingInterests
	// StageCollectingTime waits for the available time in hours.
	StageCollectingTime
	// StageCollectingLocation waits for a location or textual coordinates.
	StageCollectingLocation
	// StageWaiting means a route generation is in flight; inbound events
	// are absorbed until the result is delivered.
	StageWaiting
)

// String returns the stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCollectingInterests:
		return "collecting_interests"
	case StageCollectingTime:
		return "collecting_time"
	case StageCollectingLocation:
		return "collecting_location"
	case StageWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Location is a pair of finite WGS84 coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Session tracks one user's progress through the collection cycle.
// All access goes through the session registry; the generation goroutine
// never touches these fields and only ever sees a TripRequest copy.
type Session struct {
	ChatID    int64
	Stage     Stage
	Interests string
	Hours     float64
	Location  *Location

	// GenerationDone is set by the supervisor's delivery callback while
	// the session is still waiting, and consumed exactly once by the
	// state machine.
	GenerationDone bool

	// Epoch increments every time the collected input is cleared. A
	// delivery carrying a stale epoch belongs to a cancelled cycle and
	// is dropped instead of attaching to a newer one.
	Epoch uint64

	LastActivity time.Time
}

// ClearInput drops all collected fields and the done flag, starting a
// new cycle epoch.
func (s *Session) ClearInput() {
	s.Interests = ""
	s.Hours = 0
	s.Location = nil
	s.GenerationDone = false
	s.Epoch++
}

// TripRequest is the immutable input snapshot handed to the generation
// task. Copying it decouples the background goroutine from the live
// session record, which may be reset while generation runs.
type TripRequest struct {
	Interests string
	Hours     float64
	Location  Location
}

// Snapshot builds a TripRequest from the collected fields. Only valid
// once all three fields are populated.
func (s *Session) Snapshot() TripRequest {
	req := TripRequest{
		Interests: s.Interests,
		Hours:     s.Hours,
	}
	if s.Location != nil {
		req.Location = *s.Location
	}
	return req
}
