package model

import "time"

// EntityKind distinguishes the two kinds of monitored entities.
type EntityKind string

const (
	EntityKindPerson  EntityKind = "person"
	EntityKindCompany EntityKind = "company"
)

// Valid reports whether the kind is one of the known values.
func (k EntityKind) Valid() bool {
	return k == EntityKindPerson || k == EntityKindCompany
}

// Entity represents a person or company whose AI presence is monitored.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	Industry  string     `json:"industry,omitempty"`
	Websites  []string   `json:"websites,omitempty"`
	Aliases   []string   `json:"aliases,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
