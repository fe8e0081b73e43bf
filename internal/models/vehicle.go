package models

import "time"

// Vehicle is one fleet roster entry.
type Vehicle struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Plate     string    `db:"plate" json:"plate"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
