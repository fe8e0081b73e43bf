package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"fleettrack/internal/models"
	"fleettrack/internal/service"
)

// PositionInput is the payload the upstream telemetry integration
// posts for each sample.
type PositionInput struct {
	VehicleID  string    `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IngestHandler accepts telemetry samples from the upstream
// integration.
type IngestHandler struct {
	svc    *service.TrackingService
	logger *zap.Logger
}

// NewIngestHandler builds handler.
func NewIngestHandler(svc *service.TrackingService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{svc: svc, logger: logger}
}

// HandlePosition persists one sample.
func (h *IngestHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var input PositionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if input.RecordedAt.IsZero() {
		input.RecordedAt = time.Now().UTC()
	}

	position := models.VehiclePosition{
		VehicleID:  input.VehicleID,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		SpeedKmh:   input.SpeedKmh,
		Heading:    input.Heading,
		RecordedAt: input.RecordedAt.UTC(),
	}
	if err := h.svc.RecordPosition(r.Context(), position); err != nil {
		h.logger.Warn("failed to record position",
			zap.String("vehicle_id", input.VehicleID), zap.Error(err))
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
