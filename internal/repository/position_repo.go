package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleettrack/internal/models"
	"fleettrack/internal/tracking"
)

// PositionRepository is the telemetry store adapter for vehicle
// position rows. All row-to-struct mapping goes through a single
// validation chokepoint, so store-shape drift surfaces as
// MalformedTelemetryError before any core function sees the data.
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository returns repository.
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Insert stores a new telemetry sample. The sample is validated
// before it touches the store.
func (r *PositionRepository) Insert(ctx context.Context, p *models.VehiclePosition) error {
	if err := validatePosition(*p); err != nil {
		return err
	}
	const query = `
		INSERT INTO vehicle_positions (vehicle_id, latitude, longitude, speed_kmh, heading, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		p.VehicleID,
		p.Latitude,
		p.Longitude,
		nullFloat(p.SpeedKmh),
		nullFloat(p.Heading),
		p.RecordedAt.UTC(),
	)
	if err != nil {
		return storeErr("insert position", err)
	}
	return nil
}

// LastPosition returns the most recent sample for a vehicle, or nil
// when none was ever recorded.
func (r *PositionRepository) LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error) {
	const query = `
		SELECT vehicle_id, latitude, longitude, speed_kmh, heading, recorded_at
		FROM vehicle_positions
		WHERE vehicle_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, vehicleID)
	p, err := scanPosition(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LastPositions returns the most recent sample per vehicle for fleet
// aggregation.
func (r *PositionRepository) LastPositions(ctx context.Context) (map[string]*models.VehiclePosition, error) {
	const query = `
		SELECT DISTINCT ON (vehicle_id) vehicle_id, latitude, longitude, speed_kmh, heading, recorded_at
		FROM vehicle_positions
		ORDER BY vehicle_id, recorded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("query last positions", err)
	}
	defer rows.Close()

	latest := make(map[string]*models.VehiclePosition)
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, err
		}
		latest[p.VehicleID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query last positions", err)
	}
	return latest, nil
}

// QueryRange streams a vehicle's samples with from <= recorded_at <= to,
// ascending by timestamp. The returned sequence holds a live cursor;
// callers must Close it, and may restart by querying again.
func (r *PositionRepository) QueryRange(ctx context.Context, vehicleID string, from, to time.Time) (tracking.PositionSeq, error) {
	const query = `
		SELECT vehicle_id, latitude, longitude, speed_kmh, heading, recorded_at
		FROM vehicle_positions
		WHERE vehicle_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleID, from.UTC(), to.UTC())
	if err != nil {
		return nil, storeErr("query range", err)
	}
	return &rowSeq{rows: rows}, nil
}

// rowSeq adapts a sql.Rows cursor to tracking.PositionSeq.
type rowSeq struct {
	rows *sql.Rows
}

func (s *rowSeq) Next() (models.VehiclePosition, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return models.VehiclePosition{}, false, storeErr("query range", err)
		}
		return models.VehiclePosition{}, false, nil
	}
	p, err := scanPosition(s.rows.Scan)
	if err != nil {
		return models.VehiclePosition{}, false, err
	}
	return p, true, nil
}

func (s *rowSeq) Close() error {
	return s.rows.Close()
}

// scanPosition maps one store row to a validated sample.
func scanPosition(scan func(dest ...any) error) (models.VehiclePosition, error) {
	var (
		p       models.VehiclePosition
		speed   sql.NullFloat64
		heading sql.NullFloat64
	)
	if err := scan(&p.VehicleID, &p.Latitude, &p.Longitude, &speed, &heading, &p.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VehiclePosition{}, err
		}
		return models.VehiclePosition{}, storeErr("scan position", err)
	}
	if speed.Valid {
		p.SpeedKmh = &speed.Float64
	}
	if heading.Valid {
		p.Heading = &heading.Float64
	}
	if err := validatePosition(p); err != nil {
		return models.VehiclePosition{}, err
	}
	return p, nil
}

func validatePosition(p models.VehiclePosition) error {
	malformed := func(reason string) error {
		return &tracking.MalformedTelemetryError{
			VehicleID:  p.VehicleID,
			RecordedAt: p.RecordedAt,
			Reason:     reason,
		}
	}

	if p.VehicleID == "" {
		return malformed("missing vehicle id")
	}
	if p.RecordedAt.IsZero() {
		return malformed("missing timestamp")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return malformed(fmt.Sprintf("latitude %.6f out of range", p.Latitude))
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return malformed(fmt.Sprintf("longitude %.6f out of range", p.Longitude))
	}
	if p.SpeedKmh != nil && *p.SpeedKmh < 0 {
		return malformed(fmt.Sprintf("negative speed %.2f", *p.SpeedKmh))
	}
	if p.Heading != nil && (*p.Heading < 0 || *p.Heading > 359) {
		return malformed(fmt.Sprintf("heading %.2f out of range", *p.Heading))
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func storeErr(op string, err error) error {
	return &tracking.StoreUnavailableError{Op: op, Err: err}
}
