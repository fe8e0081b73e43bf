package tracking

import (
	"context"
	"time"

	"fleettrack/internal/geo"
	"fleettrack/internal/models"
)

// TrajectorySegment is a maximal run of consecutive samples sharing
// one classification. Segments are built transiently per query.
type TrajectorySegment struct {
	Class      models.Classification    `json:"class"`
	StartTime  time.Time                `json:"start_time"`
	EndTime    time.Time                `json:"end_time"`
	Start      models.Coordinate        `json:"start"`
	End        models.Coordinate        `json:"end"`
	DistanceKm float64                  `json:"distance_km"`
	Positions  []models.VehiclePosition `json:"positions"`
}

// TrajectorySummary aggregates a reconstructed window.
type TrajectorySummary struct {
	SampleCount  int     `json:"sample_count"`
	StoppedCount int     `json:"stopped_count"`
	MovingCount  int     `json:"moving_count"`
	MeanSpeedKmh float64 `json:"mean_speed_kmh"`
}

// Trajectory is the reconstructed history of one vehicle over a time
// window.
type Trajectory struct {
	VehicleID string                   `json:"vehicle_id"`
	From      time.Time                `json:"from"`
	To        time.Time                `json:"to"`
	Positions []models.VehiclePosition `json:"positions"`
	Segments  []TrajectorySegment      `json:"segments"`
	Summary   TrajectorySummary        `json:"summary"`
}

// RouteStats reduces the trajectory to the figures the fleet snapshot
// aggregates.
func (t *Trajectory) RouteStats() RouteStats {
	var stats RouteStats
	for _, seg := range t.Segments {
		stats.DistanceKm += seg.DistanceKm
	}
	if len(t.Positions) > 1 {
		first := t.Positions[0].RecordedAt
		last := t.Positions[len(t.Positions)-1].RecordedAt
		stats.Duration = last.Sub(first)
	}
	return stats
}

// Reconstructor rebuilds vehicle trajectories from the telemetry
// store.
type Reconstructor struct {
	source        PositionSource
	speedLimitKmh float64
}

// NewReconstructor returns a reconstructor reading from source. The
// speed limit only affects the speeding reporting tag; zero or
// negative falls back to the default limit.
func NewReconstructor(source PositionSource, speedLimitKmh float64) *Reconstructor {
	if speedLimitKmh <= 0 {
		speedLimitKmh = DefaultSpeedLimitKmh
	}
	return &Reconstructor{source: source, speedLimitKmh: speedLimitKmh}
}

// Stream returns the lazily evaluated, order-checked sample stream for
// the window. Callers may consume incrementally and must Close; the
// stream is restartable by calling Stream again.
func (r *Reconstructor) Stream(ctx context.Context, vehicleID string, from, to time.Time) (PositionSeq, error) {
	if from.After(to) {
		return nil, ErrInvalidWindow
	}
	seq, err := r.source.QueryRange(ctx, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	return newOrderedSeq(seq), nil
}

// Reconstruct loads the full window, classifies every sample, groups
// consecutive same-class samples into segments and summarizes. An
// empty window yields an empty trajectory, not an error.
func (r *Reconstructor) Reconstruct(ctx context.Context, vehicleID string, from, to time.Time) (*Trajectory, error) {
	seq, err := r.Stream(ctx, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer seq.Close()

	var positions []models.VehiclePosition
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		p.Class = Classify(p, r.speedLimitKmh)
		positions = append(positions, p)
	}

	return &Trajectory{
		VehicleID: vehicleID,
		From:      from,
		To:        to,
		Positions: positions,
		Segments:  BuildSegments(positions),
		Summary:   Summarize(positions),
	}, nil
}

// Classify tags a sample: stop at or below the moving threshold,
// speeding above the configured limit, movement otherwise. The
// speeding tag never overrides stop.
func Classify(p models.VehiclePosition, speedLimitKmh float64) models.Classification {
	speed := p.SpeedValue()
	if speed <= MovingSpeedKmh {
		return models.ClassStop
	}
	if speedLimitKmh > 0 && speed > speedLimitKmh {
		return models.ClassSpeeding
	}
	return models.ClassMovement
}

// BuildSegments groups consecutive same-class samples. A segment's
// distance is the haversine sum between its consecutive points.
// Concatenating all segments' positions reproduces the input exactly.
func BuildSegments(positions []models.VehiclePosition) []TrajectorySegment {
	var segments []TrajectorySegment
	for i := 0; i < len(positions); {
		j := i + 1
		for j < len(positions) && positions[j].Class == positions[i].Class {
			j++
		}
		run := positions[i:j]

		var distance float64
		for k := 1; k < len(run); k++ {
			distance += geo.DistanceKm(run[k-1].Coordinate(), run[k].Coordinate())
		}

		segments = append(segments, TrajectorySegment{
			Class:      run[0].Class,
			StartTime:  run[0].RecordedAt,
			EndTime:    run[len(run)-1].RecordedAt,
			Start:      run[0].Coordinate(),
			End:        run[len(run)-1].Coordinate(),
			DistanceKm: distance,
			Positions:  run,
		})
		i = j
	}
	return segments
}

// Summarize computes window statistics. Speeding samples count as
// moving.
func Summarize(positions []models.VehiclePosition) TrajectorySummary {
	summary := TrajectorySummary{SampleCount: len(positions)}
	if len(positions) == 0 {
		return summary
	}

	var speedSum float64
	for _, p := range positions {
		if p.Class == models.ClassStop {
			summary.StoppedCount++
		} else {
			summary.MovingCount++
		}
		speedSum += p.SpeedValue()
	}
	summary.MeanSpeedKmh = speedSum / float64(len(positions))
	return summary
}
