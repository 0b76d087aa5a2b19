// Package api provides the operational HTTP surface of the bot:
// health, stats, and Prometheus metrics. It carries no user traffic.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/routegen"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/session"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// Handler serves the operational endpoints.
type Handler struct {
	repo store.Repository
	reg  *session.Registry
	sup  *routegen.Supervisor
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, reg *session.Registry, sup *routegen.Supervisor) *Handler {
	return &Handler{repo: repo, reg: reg, sup: sup}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health returns the health status of the bot and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"bot": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// Stats reports live counters: tracked sessions, in-flight generations,
// and total recorded routes.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	total, err := h.repo.CountRoutes(ctx)
	if err != nil {
		slog.Error("Stats query failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to count routes")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"active_sessions":      h.reg.Len(),
		"inflight_generations": h.sup.Inflight(),
		"routes_total":         total,
	})
}

// RecentRoutes returns the latest delivered routes for operator review.
func (h *Handler) RecentRoutes(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	routes, err := h.repo.RecentRoutes(r.Context(), limit)
	if err != nil {
		slog.Error("Recent routes query failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load routes")
		return
	}

	type routeJSON struct {
		ID         int64   `json:"id"`
		ChatID     int64   `json:"chat_id"`
		Interests  string  `json:"interests"`
		Hours      float64 `json:"hours"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
		RouteText  string  `json:"route_text"`
		DurationMs int64   `json:"duration_ms"`
		CreatedAt  string  `json:"created_at"`
	}
	out := make([]routeJSON, 0, len(routes))
	for _, rec := range routes {
		out = append(out, routeJSON{
			ID:         rec.ID,
			ChatID:     rec.ChatID,
			Interests:  rec.Interests,
			Hours:      rec.Hours,
			Latitude:   rec.Latitude,
			Longitude:  rec.Longitude,
			RouteText:  rec.RouteText,
			DurationMs: rec.DurationMs,
			CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"routes": out})
}

// Router builds the chi router for the operational server.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Get("/routes/recent", h.RecentRoutes)
	r.Handle("/metrics", promhttp.Handler())
	return r
}
