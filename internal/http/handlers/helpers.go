package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fleettrack/internal/repository"
	"fleettrack/internal/tracking"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps core error kinds to HTTP statuses: invalid window
// to 400, malformed telemetry to 422 with the diagnostic, store
// unavailability to 503 so clients know to retry.
func respondError(w http.ResponseWriter, err error) {
	var malformed *tracking.MalformedTelemetryError
	switch {
	case errors.Is(err, tracking.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "from must not be after to")
	case errors.As(err, &malformed):
		writeError(w, http.StatusUnprocessableEntity, malformed.Error())
	case errors.Is(err, repository.ErrVehicleNotFound):
		writeError(w, http.StatusNotFound, "vehicle not found")
	case tracking.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "telemetry store unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseWindow reads the required from/to RFC3339 query parameters.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to query parameters are required")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
	}
	return from, to, nil
}
