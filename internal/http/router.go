package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	FleetSnapshot  http.HandlerFunc
	VehicleStatus  http.HandlerFunc
	Trajectory     http.HandlerFunc
	Alerts         http.HandlerFunc
	LiveFeed       http.HandlerFunc
	IngestPosition http.HandlerFunc
	Health         http.HandlerFunc
}

// NewRouter registers endpoints. Dashboard routes are wrapped with
// the auth middleware when one is supplied; the ingest callback and
// health stay internal.
func NewRouter(routes Routes, auth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	guarded := func(h http.HandlerFunc) http.Handler {
		if auth == nil {
			return h
		}
		return auth(h)
	}

	if routes.FleetSnapshot != nil {
		mux.Handle("GET /fleet/snapshot", guarded(routes.FleetSnapshot))
	}
	if routes.VehicleStatus != nil {
		mux.Handle("GET /vehicles/{id}/status", guarded(routes.VehicleStatus))
	}
	if routes.Trajectory != nil {
		mux.Handle("GET /vehicles/{id}/trajectory", guarded(routes.Trajectory))
	}
	if routes.Alerts != nil {
		mux.Handle("GET /vehicles/{id}/alerts", guarded(routes.Alerts))
	}
	if routes.LiveFeed != nil {
		mux.Handle("GET /fleet/live", routes.LiveFeed)
	}
	if routes.IngestPosition != nil {
		mux.Handle("POST /internal/telemetry/positions", routes.IngestPosition)
	}
	if routes.Health != nil {
		mux.Handle("GET /health", routes.Health)
	}
	return mux
}
