package repository

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/models"
)

// ErrVehicleNotFound indicates an unknown vehicle id.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleRepository reads the fleet roster.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository returns repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// List returns all registered vehicles.
func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	const query = `
		SELECT id, name, plate, created_at
		FROM vehicles
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list vehicles", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate, &v.CreatedAt); err != nil {
			return nil, storeErr("list vehicles", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list vehicles", err)
	}
	return vehicles, nil
}

// Get returns one vehicle by id.
func (r *VehicleRepository) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	const query = `
		SELECT id, name, plate, created_at
		FROM vehicles
		WHERE id = $1
	`
	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name, &v.Plate, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, storeErr("get vehicle", err)
	}
	return &v, nil
}
