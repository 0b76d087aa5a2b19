// Package collect validates and accumulates the three inputs of a
// collection cycle: interests, available time, and location. It does no
// I/O and no locking; callers run it under the registry's per-session
// serialization.
package collect

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

var (
	// ErrEmptyInput means the interests message was blank.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidNumber means the time message was not a positive real.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvalidLocation means neither a structured location nor textual
	// coordinates could be parsed.
	ErrInvalidLocation = errors.New("invalid location")
)

// Interests trims and stores the interests text, advancing the session
// to the time stage. The first message of a cycle is positional: any
// non-blank text is accepted as interests, even if it looks like a number.
func Interests(s *domain.Session, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrEmptyInput
	}
	s.Interests = text
	s.Stage = domain.StageCollectingTime
	return nil
}

// Hours parses the available time in hours, accepting both "." and ","
// as the decimal separator, and advances the session to the location
// stage. Non-positive and non-finite values are rejected.
func Hours(s *domain.Session, raw string) error {
	text := strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	hours, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return ErrInvalidNumber
	}
	s.Hours = hours
	s.Stage = domain.StageCollectingLocation
	return nil
}

// Location stores a structured coordinate pair and marks the input
// complete. Both coordinates must be finite.
func Location(s *domain.Session, lat, lon float64) error {
	if !finite(lat) || !finite(lon) {
		return ErrInvalidLocation
	}
	s.Location = &domain.Location{Latitude: lat, Longitude: lon}
	return nil
}

// LocationText parses free-text coordinates of the form "<lat> <lon>"
// (space or comma separated) and stores them.
func LocationText(s *domain.Session, raw string) error {
	lat, lon, err := ParseCoordinates(raw)
	if err != nil {
		return err
	}
	return Location(s, lat, lon)
}

// ParseCoordinates splits a "lat lon" / "lat, lon" string into two
// finite reals.
func ParseCoordinates(raw string) (lat, lon float64, err error) {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\t'
	})
	parts := fields[:0]
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) != 2 {
		return 0, 0, ErrInvalidLocation
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil || !finite(lat) {
		return 0, 0, ErrInvalidLocation
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil || !finite(lon) {
		return 0, 0, ErrInvalidLocation
	}
	return lat, lon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
