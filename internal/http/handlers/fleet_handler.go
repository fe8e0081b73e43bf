package handlers

import (
	"net/http"

	"fleettrack/internal/service"
)

// NewFleetSnapshotHandler serves the fleet-wide dashboard aggregate.
func NewFleetSnapshotHandler(svc *service.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := svc.FleetSnapshot(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
