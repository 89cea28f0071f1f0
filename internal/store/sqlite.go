package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/oilpro/tanks-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS inspections (
	id            TEXT PRIMARY KEY,
	report_number TEXT NOT NULL UNIQUE,
	tank_id       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'Draft',
	record        TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dashboard_entries (
	id            TEXT PRIMARY KEY,
	report_number TEXT NOT NULL,
	tank_id       TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_inspections_report_number ON inspections(report_number);
CREATE INDEX IF NOT EXISTS idx_inspections_tank_id ON inspections(tank_id);
CREATE INDEX IF NOT EXISTS idx_inspections_status ON inspections(status);
CREATE INDEX IF NOT EXISTS idx_dashboard_entries_report_number ON dashboard_entries(report_number);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveInspection(ctx context.Context, insp *model.Inspection) error {
	if insp.ID == "" {
		insp.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if insp.CreatedAt.IsZero() {
		insp.CreatedAt = now
	}
	insp.UpdatedAt = now

	recordJSON, err := json.Marshal(insp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal inspection")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO inspections (id, report_number, tank_id, status, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (report_number) DO UPDATE SET
		   tank_id = excluded.tank_id,
		   status = excluded.status,
		   record = excluded.record,
		   updated_at = excluded.updated_at`,
		insp.ID, insp.ReportNumber, insp.TankID, string(insp.Status), string(recordJSON),
		insp.CreatedAt, insp.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save inspection %s", insp.ReportNumber)
}

func (s *SQLiteStore) GetInspectionByReportNumber(ctx context.Context, reportNumber string) (*model.Inspection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM inspections WHERE report_number = ?`,
		reportNumber,
	)

	var recordJSON string
	err := row.Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get inspection %s", reportNumber)
	}

	var insp model.Inspection
	if err := json.Unmarshal([]byte(recordJSON), &insp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal inspection")
	}
	return &insp, nil
}

func (s *SQLiteStore) ListInspections(ctx context.Context, filter Filter) ([]model.Inspection, error) {
	query := `SELECT record FROM inspections WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.TankID != "" {
		query += ` AND tank_id = ?`
		args = append(args, filter.TankID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list inspections")
	}
	defer rows.Close()

	var out []model.Inspection
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan inspection")
		}
		var insp model.Inspection
		if err := json.Unmarshal([]byte(recordJSON), &insp); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal inspection")
		}
		out = append(out, insp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list inspections iterate")
}

func (s *SQLiteStore) CreateDashboardEntry(ctx context.Context, entry model.DashboardEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dashboard_entries (id, report_number, tank_id, created_at) VALUES (?, ?, ?, ?)`,
		id, entry.ReportNumber, entry.TankID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: create dashboard entry %s", entry.ReportNumber)
}

func (s *SQLiteStore) ListDashboardEntries(ctx context.Context) ([]model.DashboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_number, tank_id, created_at FROM dashboard_entries ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dashboard entries")
	}
	defer rows.Close()

	var out []model.DashboardEntry
	for rows.Next() {
		var e model.DashboardEntry
		if err := rows.Scan(&e.ID, &e.ReportNumber, &e.TankID, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dashboard entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list dashboard entries iterate")
}

func (s *SQLiteStore) CleanupOrphanedEntries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dashboard_entries
		 WHERE report_number NOT IN (SELECT report_number FROM inspections)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: cleanup orphaned entries")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
