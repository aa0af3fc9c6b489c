package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
)

// Attempt is one linking request as recorded in the ledger
type Attempt struct {
	ID        string
	Method    string
	SessionID string
	Phone     string
	StartedAt time.Time
}

// Store records linking attempts and their outcomes
type Store interface {
	Begin(ctx context.Context, attempt Attempt) error
	Finish(ctx context.Context, id string, outcome string, status int, at time.Time) error
	Close() error
}

// Nop is used when no ledger datastore is configured
type Nop struct{}

func (Nop) Begin(context.Context, Attempt) error                         { return nil }
func (Nop) Finish(context.Context, string, string, int, time.Time) error { return nil }
func (Nop) Close() error                                                 { return nil }

// Open connects to the datastore named by LEDGER_DATASTORE_URI, or returns Nop
// when it is empty.
func Open(ctx context.Context) (Store, error) {
	uri := env.GetEnvStringOrDefault("LEDGER_DATASTORE_URI", "")
	if len(uri) == 0 {
		return Nop{}, nil
	}
	return OpenPostgres(ctx, uri)
}

type Postgres struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, uri string) (*Postgres, error) {
	db, err := sql.Open("pgx", normalizeDSN(uri))
	if err != nil {
		return nil, fmt.Errorf("open ledger datastore: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger datastore: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session_attempts (
		id TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		session_id TEXT NOT NULL,
		phone_masked TEXT,
		outcome TEXT,
		status INTEGER,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session_attempts: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_session_attempts_started ON session_attempts(started_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session_attempts index: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Begin(ctx context.Context, attempt Attempt) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO session_attempts (id, method, session_id, phone_masked, started_at) VALUES ($1, $2, $3, $4, $5)`,
		attempt.ID, attempt.Method, attempt.SessionID, nullable(attempt.Phone), attempt.StartedAt.UTC())
	return err
}

func (p *Postgres) Finish(ctx context.Context, id string, outcome string, status int, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE session_attempts SET outcome = $2, status = $3, finished_at = $4 WHERE id = $1`,
		id, outcome, status, at.UTC())
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: len(s) > 0}
}

// normalizeDSN disables server side prepared statements so the ledger works
// behind transaction poolers.
func normalizeDSN(dsn string) string {
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	return dsn
}
