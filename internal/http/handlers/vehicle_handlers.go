package handlers

import (
	"net/http"

	"fleettrack/internal/service"
	"fleettrack/internal/tracking"
)

// NewVehicleStatusHandler derives the current status of one vehicle.
func NewVehicleStatusHandler(svc *service.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleID := r.PathValue("id")
		status, err := svc.VehicleStatus(r.Context(), vehicleID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"vehicle_id": vehicleID,
			"status":     status,
		})
	}
}

// NewTrajectoryHandler reconstructs a vehicle's history for a window.
func NewTrajectoryHandler(svc *service.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseWindow(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		trajectory, err := svc.Trajectory(r.Context(), r.PathValue("id"), from, to)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trajectory)
	}
}

// NewAlertsHandler scans a vehicle's window for threshold violations.
func NewAlertsHandler(svc *service.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := parseWindow(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		alerts, err := svc.WindowAlerts(r.Context(), r.PathValue("id"), from, to)
		if err != nil {
			respondError(w, err)
			return
		}
		if alerts == nil {
			alerts = []tracking.Alert{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"vehicle_id": r.PathValue("id"),
			"alerts":     alerts,
		})
	}
}
