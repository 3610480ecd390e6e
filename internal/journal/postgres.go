package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is a Recorder backed by a Postgres table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and ensures the journal table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	p := &Postgres{db: db}
	if err := p.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal table: %w", err)
	}
	return p, nil
}

func (p *Postgres) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS scene_executions (
			id             BIGSERIAL PRIMARY KEY,
			request_id     TEXT NOT NULL,
			ts             TIMESTAMPTZ NOT NULL,
			domain         TEXT,
			seed           BIGINT NOT NULL,
			state          TEXT NOT NULL,
			committed_name TEXT,
			error          TEXT,
			issues         JSONB,
			datablocks     INTEGER NOT NULL,
			duration_ms    BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scene_executions_ts ON scene_executions(ts DESC);
	`
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Record inserts an entry.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	var issuesJSON []byte
	if len(e.Issues) > 0 {
		var err error
		if issuesJSON, err = json.Marshal(e.Issues); err != nil {
			return fmt.Errorf("failed to marshal issues: %w", err)
		}
	}
	query := `
		INSERT INTO scene_executions
			(request_id, ts, domain, seed, state, committed_name, error, issues, datablocks, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := p.db.ExecContext(ctx, query,
		e.RequestID, e.Timestamp, nullString(e.Domain), e.Seed, e.State,
		nullString(e.CommittedName), nullString(e.Error), issuesJSON, e.Datablocks, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record execution %s: %w", e.RequestID, err)
	}
	return nil
}

// Recent returns the last limit entries, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT request_id, ts, domain, seed, state, committed_name, error, issues, datablocks, duration_ms
		FROM scene_executions
		ORDER BY ts DESC, id DESC
		LIMIT $1
	`
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var domain, committed, errText sql.NullString
		var issuesJSON []byte
		var durationMS int64
		if err := rows.Scan(&e.RequestID, &e.Timestamp, &domain, &e.Seed, &e.State,
			&committed, &errText, &issuesJSON, &e.Datablocks, &durationMS); err != nil {
			return nil, err
		}
		e.Domain, e.CommittedName, e.Error = domain.String, committed.String, errText.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if len(issuesJSON) > 0 {
			if err := json.Unmarshal(issuesJSON, &e.Issues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
