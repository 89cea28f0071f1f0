package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/oilpro/tanks-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_inspection":  `SELECT record FROM inspections WHERE report_number = $1`,
	"insert_entry":    `INSERT INTO dashboard_entries (id, report_number, tank_id, created_at) VALUES ($1, $2, $3, $4)`,
	"cleanup_entries": `DELETE FROM dashboard_entries WHERE report_number NOT IN (SELECT report_number FROM inspections)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS inspections (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	report_number TEXT NOT NULL UNIQUE,
	tank_id       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'Draft',
	record        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dashboard_entries (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	report_number TEXT NOT NULL,
	tank_id       TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_inspections_tank_id ON inspections(tank_id);
CREATE INDEX IF NOT EXISTS idx_inspections_status ON inspections(status);
CREATE INDEX IF NOT EXISTS idx_dashboard_entries_report_number ON dashboard_entries(report_number);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveInspection(ctx context.Context, insp *model.Inspection) error {
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
		return eris.Wrap(err, "postgres: marshal inspection")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO inspections (id, report_number, tank_id, status, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (report_number) DO UPDATE SET
		   tank_id = EXCLUDED.tank_id,
		   status = EXCLUDED.status,
		   record = EXCLUDED.record,
		   updated_at = EXCLUDED.updated_at`,
		insp.ID, insp.ReportNumber, insp.TankID, string(insp.Status), recordJSON,
		insp.CreatedAt, insp.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save inspection %s", insp.ReportNumber)
}

func (s *PostgresStore) GetInspectionByReportNumber(ctx context.Context, reportNumber string) (*model.Inspection, error) {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM inspections WHERE report_number = $1`,
		reportNumber,
	).Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get inspection %s", reportNumber)
	}

	var insp model.Inspection
	if err := json.Unmarshal(recordJSON, &insp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal inspection")
	}
	return &insp, nil
}

func (s *PostgresStore) ListInspections(ctx context.Context, filter Filter) ([]model.Inspection, error) {
	query := `SELECT record FROM inspections WHERE ($1 = '' OR status = $1) AND ($2 = '' OR tank_id = $2) ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, string(filter.Status), filter.TankID, limit, filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list inspections")
	}
	defer rows.Close()

	var out []model.Inspection
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan inspection")
		}
		var insp model.Inspection
		if err := json.Unmarshal(recordJSON, &insp); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal inspection")
		}
		out = append(out, insp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list inspections iterate")
}

func (s *PostgresStore) CreateDashboardEntry(ctx context.Context, entry model.DashboardEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dashboard_entries (id, report_number, tank_id, created_at) VALUES ($1, $2, $3, $4)`,
		id, entry.ReportNumber, entry.TankID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: create dashboard entry %s", entry.ReportNumber)
}

func (s *PostgresStore) ListDashboardEntries(ctx context.Context) ([]model.DashboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, report_number, tank_id, created_at FROM dashboard_entries ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dashboard entries")
	}
	defer rows.Close()

	var out []model.DashboardEntry
	for rows.Next() {
		var e model.DashboardEntry
		if err := rows.Scan(&e.ID, &e.ReportNumber, &e.TankID, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dashboard entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list dashboard entries iterate")
}

func (s *PostgresStore) CleanupOrphanedEntries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dashboard_entries WHERE report_number NOT IN (SELECT report_number FROM inspections)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup orphaned entries")
	}
	return int(tag.RowsAffected()), nil
}
