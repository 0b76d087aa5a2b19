package domain

import "time"

// RouteRecord is a successfully delivered route, kept for operator review.
type RouteRecord struct {
	ID         int64
	ChatID     int64
	Interests  string
	Hours      float64
	Latitude   float64
	Longitude  float64
	RouteText  string
	DurationMs int64
	CreatedAt  time.Time
}
