// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

// Repository defines the interface for persisting delivered routes.
// Session state is deliberately not persisted; the registry is
// process-lifetime only.
type Repository interface {
	// SaveRoute records one successfully delivered route.
	SaveRoute(ctx context.Context, rec *domain.RouteRecord) error

	// RecentRoutes retrieves the latest delivered routes, newest first.
	RecentRoutes(ctx context.Context, limit int) ([]*domain.RouteRecord, error)

	// CountRoutes reports the total number of recorded routes.
	CountRoutes(ctx context.Context) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
