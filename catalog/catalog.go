// Package catalog is the SQLite-backed personnel catalog the importers write
// into: organizational units, positions and their qualification rows, ranks,
// user accounts and officer profiles.
package catalog

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrUnitNotFound is returned when a unit id does not exist.
	ErrUnitNotFound = errors.New("catalog: unit not found")
	// ErrNotFound is returned by single-row lookups that found nothing.
	ErrNotFound = errors.New("catalog: not found")
)

// Role values for users.
const (
	RoleOfficer = "OFFICER"
	RoleHR      = "HR"
	RoleAdmin   = "ADMIN"
)

// Unit is an organizational unit.
type Unit struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	ParentID *int64 `json:"parent_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Rank is a military rank.
type Rank struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	IsActive bool   `json:"is_active"`
}

// Position belongs to a unit; Code is unique within the unit.
type Position struct {
	ID     int64  `json:"id"`
	UnitID int64  `json:"unit_id"`
	Title  string `json:"title"`
	Code   string `json:"code"`
}

// Qualification is one catalogued requirement row of a position. At most one
// row exists per (PositionID, Category, Order).
type Qualification struct {
	ID         int64     `json:"id"`
	PositionID int64     `json:"position_id"`
	Category   string    `json:"category"`
	Order      int       `json:"order"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is an account; Email is stored lower-cased.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OfficerProfile is the one-to-one personnel record of a user. Dates are ISO
// yyyy-mm-dd strings; nil means unknown.
type OfficerProfile struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	FullName            string          `json:"full_name"`
	BirthDate           *string         `json:"birth_date"`
	BirthPlace          string          `json:"birth_place"`
	IIN                 string          `json:"iin"`
	Nationality         string          `json:"nationality"`
	MaritalStatus       string          `json:"marital_status"`
	CombatParticipation bool            `json:"combat_participation"`
	CombatNotes         string          `json:"combat_notes"`
	RankID              *int64          `json:"rank_id"`
	UnitID              *int64          `json:"unit_id"`
	ServiceStartDate    *string         `json:"service_start_date"`
	PersonalNumber      string          `json:"personal_number"`
	Awards              string          `json:"awards"`
	Penalties           string          `json:"penalties"`
	EducationCivil      string          `json:"education_civil"`
	EducationMilitary   string          `json:"education_military"`
	ServiceHistory      json.RawMessage `json:"service_history"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
