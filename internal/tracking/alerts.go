package tracking

import (
	"fmt"
	"time"

	"fleettrack/internal/models"
)

// AlertType identifies the rule a telemetry window violated.
type AlertType string

const (
	AlertSpeeding      AlertType = "speeding"
	AlertProlongedStop AlertType = "prolonged_stop"
)

// AlertSeverity ranks operational urgency.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Default thresholds for alert detection.
const (
	DefaultSpeedLimitKmh = 80.0
	DefaultProlongedStop = 120 * time.Minute
)

// Alert is a derived notification of a threshold violation. Alerts are
// ephemeral; persistence and acknowledgement belong to downstream
// consumers.
type Alert struct {
	VehicleID   string            `json:"vehicle_id"`
	Type        AlertType         `json:"type"`
	Severity    AlertSeverity     `json:"severity"`
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	Location    models.Coordinate `json:"location"`
	Description string            `json:"description"`
}

// AlertConfig tunes the detector thresholds. Zero values fall back to
// the defaults.
type AlertConfig struct {
	SpeedLimitKmh float64
	ProlongedStop time.Duration
}

// DefaultAlertConfig returns the stock thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SpeedLimitKmh: DefaultSpeedLimitKmh,
		ProlongedStop: DefaultProlongedStop,
	}
}

func (c AlertConfig) normalized() AlertConfig {
	if c.SpeedLimitKmh <= 0 {
		c.SpeedLimitKmh = DefaultSpeedLimitKmh
	}
	if c.ProlongedStop <= 0 {
		c.ProlongedStop = DefaultProlongedStop
	}
	return c
}

// run tracks an in-progress same-class stretch of samples.
type run struct {
	active   bool
	first    models.VehiclePosition
	last     models.VehiclePosition
	maxSpeed float64
}

func (r *run) extend(p models.VehiclePosition) {
	if !r.active {
		r.active = true
		r.first = p
		r.maxSpeed = p.SpeedValue()
	}
	r.last = p
	if s := p.SpeedValue(); s > r.maxSpeed {
		r.maxSpeed = s
	}
}

func (r *run) reset() {
	*r = run{}
}

// Scan walks an ordered window of samples and returns every threshold
// violation. The detector is stateless per invocation and never
// deduplicates across invocations; callers driving it on a schedule
// own that concern. No matches yields an empty list, not an error.
func Scan(positions []models.VehiclePosition, cfg AlertConfig) []Alert {
	alerts, _ := ScanSeq(NewSliceSeq(positions), cfg)
	return alerts
}

// ScanSeq is Scan over a lazy sequence; store errors abort the scan.
func ScanSeq(seq PositionSeq, cfg AlertConfig) ([]Alert, error) {
	cfg = cfg.normalized()
	defer seq.Close()

	var (
		alerts   []Alert
		speeding run
		stopped  run
	)

	flushSpeeding := func() {
		if !speeding.active {
			return
		}
		alerts = append(alerts, Alert{
			VehicleID:   speeding.first.VehicleID,
			Type:        AlertSpeeding,
			Severity:    SeverityHigh,
			WindowStart: speeding.first.RecordedAt,
			WindowEnd:   speeding.last.RecordedAt,
			Location:    speeding.first.Coordinate(),
			Description: fmt.Sprintf("speed peaked at %.0f km/h over the %.0f km/h limit",
				speeding.maxSpeed, cfg.SpeedLimitKmh),
		})
		speeding.reset()
	}

	flushStopped := func() {
		if !stopped.active {
			return
		}
		duration := stopped.last.RecordedAt.Sub(stopped.first.RecordedAt)
		if duration >= cfg.ProlongedStop {
			alerts = append(alerts, Alert{
				VehicleID:   stopped.first.VehicleID,
				Type:        AlertProlongedStop,
				Severity:    SeverityMedium,
				WindowStart: stopped.first.RecordedAt,
				WindowEnd:   stopped.last.RecordedAt,
				Location:    stopped.first.Coordinate(),
				Description: fmt.Sprintf("stopped for %s since %s",
					duration, stopped.first.RecordedAt.UTC().Format(time.RFC3339)),
			})
		}
		stopped.reset()
	}

	for {
		p, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch Classify(p, cfg.SpeedLimitKmh) {
		case models.ClassSpeeding:
			flushStopped()
			speeding.extend(p)
		case models.ClassStop:
			flushSpeeding()
			stopped.extend(p)
		default:
			flushSpeeding()
			flushStopped()
		}
	}

	flushSpeeding()
	flushStopped()
	return alerts, nil
}
