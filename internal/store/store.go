// Package store persists canonical inspection records and their dashboard
// entries. Two backends are provided: SQLite for single-node deployments and
// Postgres for shared ones.
package store

import (
	"context"

	"github.com/oilpro/tanks-cli/internal/model"
)

// Filter specifies criteria for listing inspections.
type Filter struct {
	Status model.InspectionStatus `json:"status,omitempty"`
	TankID string                 `json:"tank_id,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
	Offset int                    `json:"offset,omitempty"`
}

// Store defines the persistence interface for inspection records.
//
// GetInspectionByReportNumber returns (nil, nil) when no record exists; the
// read-after-write verification in the importer depends on that distinction.
// Both backends are synchronously consistent, so a record is visible
// immediately after SaveInspection returns. An eventually consistent
// backend would need the verification step rethought.
type Store interface {
	SaveInspection(ctx context.Context, insp *model.Inspection) error
	GetInspectionByReportNumber(ctx context.Context, reportNumber string) (*model.Inspection, error)
	ListInspections(ctx context.Context, filter Filter) ([]model.Inspection, error)

	// Dashboard entries
	CreateDashboardEntry(ctx context.Context, entry model.DashboardEntry) error
	ListDashboardEntries(ctx context.Context) ([]model.DashboardEntry, error)
	// CleanupOrphanedEntries deletes dashboard entries whose inspection no
	// longer exists and returns how many were removed.
	CleanupOrphanedEntries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
