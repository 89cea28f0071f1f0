package model

import "time"

// InspectionStatus represents the workflow state of an inspection record.
type InspectionStatus string

const (
	// StatusDraft is the state every imported record starts in. Records move
	// out of Draft only through the review workflow, never at import time.
	StatusDraft     InspectionStatus = "Draft"
	StatusInReview  InspectionStatus = "In Review"
	StatusApproved  InspectionStatus = "Approved"
	StatusArchived  InspectionStatus = "Archived"
)

// UnknownTankID is the sentinel used when no trustworthy tank identifier
// can be resolved from the input.
const UnknownTankID = "UNKNOWN"

// UnknownInspector is the default inspector name when none is supplied.
const UnknownInspector = "Unknown Inspector"

// RawFieldBag is the unvalidated key/value input to reconciliation. Keys may
// use any casing, spacing, or punctuation; values may be strings, numbers, or
// date-like values. The reconciler never mutates a bag it is handed.
type RawFieldBag = map[string]any

// Inspection is the canonical, validated tank-inspection record.
type Inspection struct {
	ID             string           `json:"id,omitempty"`
	TankID         string           `json:"tank_id"`
	ReportNumber   string           `json:"report_number"`
	Service        string           `json:"service"`
	Inspector      string           `json:"inspector"`
	InspectionDate time.Time        `json:"inspection_date"`
	Diameter       float64          `json:"diameter"`
	Height         float64          `json:"height"`
	Capacity       float64          `json:"capacity"`
	YearBuilt      float64          `json:"year_built"`
	ShellMaterial  string           `json:"shell_material"`
	RoofType       string           `json:"roof_type"`
	FoundationType string           `json:"foundation_type"`
	Status         InspectionStatus `json:"status"`

	// Free-text fields attached after primary construction. nil means the
	// field was absent from the input, which is meaningful and preserved;
	// they are never defaulted to "".
	Findings        *string `json:"findings,omitempty"`
	Recommendations *string `json:"recommendations,omitempty"`
	Notes           *string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DashboardEntry is the lightweight listing row the dashboard renders for an
// inspection. Entries reference inspections by report number; an entry whose
// inspection no longer exists is orphaned and eligible for cleanup.
type DashboardEntry struct {
	ID           string    `json:"id,omitempty"`
	ReportNumber string    `json:"report_number"`
	TankID       string    `json:"tank_id"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}
