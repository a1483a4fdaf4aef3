// Package store archives command results in SQLite.
//
// The archive is append-only and opt-in: the engine itself keeps no state
// between runs, but a user can point it at a database to accumulate
// verdicts across invocations, then query them with ordinary SQL. WAL
// mode keeps concurrent readers off the single writer's back.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	model          TEXT NOT NULL,
	command        TEXT NOT NULL,
	kind           TEXT NOT NULL,
	verdict        TEXT NOT NULL,
	nodes          INTEGER NOT NULL,
	vectors        INTEGER NOT NULL,
	elapsed_us     INTEGER NOT NULL,
	digest         TEXT NOT NULL,
	report         TEXT NOT NULL,
	engine_version TEXT NOT NULL,
	ir_version     TEXT NOT NULL,
	created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_model_command ON runs(model, command);
`

// Store is an open verdict archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive at path. Safe to call repeatedly on
// the same file; the schema is applied idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// SQLite takes one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("open archive: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive: applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one archived command execution.
type Run struct {
	ID            string
	Model         string
	Command       string
	Kind          string
	Verdict       string
	Nodes         int64
	Vectors       int64
	ElapsedUS     int64
	Digest        string
	Report        string
	EngineVersion string
	IRVersion     string
	CreatedAt     string
}

// WriteRun archives one result. Writing the same run id twice is a no-op,
// so retried invocations stay idempotent.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, model, command, kind, verdict, nodes, vectors, elapsed_us,
		 digest, report, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID, r.Model, r.Command, r.Kind, r.Verdict,
		r.Nodes, r.Vectors, r.ElapsedUS,
		r.Digest, r.Report, r.EngineVersion, r.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// GetRun fetches one archived run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model, command, kind, verdict, nodes, vectors,
		       elapsed_us, digest, report, engine_version, ir_version,
		       created_at
		FROM runs WHERE id = ?
	`, id)
	var r Run
	err := row.Scan(&r.ID, &r.Model, &r.Command, &r.Kind, &r.Verdict,
		&r.Nodes, &r.Vectors, &r.ElapsedUS,
		&r.Digest, &r.Report, &r.EngineVersion, &r.IRVersion, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("get run: %q not found", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns archived runs for a model and command, newest first.
// An empty command matches all of the model's commands.
func (s *Store) ListRuns(ctx context.Context, model, command string) ([]Run, error) {
	query := `
		SELECT id, model, command, kind, verdict, nodes, vectors,
		       elapsed_us, digest, report, engine_version, ir_version,
		       created_at
		FROM runs WHERE model = ?
	`
	args := []any{model}
	if command != "" {
		query += " AND command = ?"
		args = append(args, command)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.Command, &r.Kind, &r.Verdict,
			&r.Nodes, &r.Vectors, &r.ElapsedUS,
			&r.Digest, &r.Report, &r.EngineVersion, &r.IRVersion, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
