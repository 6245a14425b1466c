package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresChecker probes PostgreSQL over a dedicated database/sql connection,
// independent of the application pool
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a lib/pq handle for dsn. The connection is lazy;
// a bad DSN is reported here, an unreachable server by HealthCheck.
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &PostgresChecker{db: db}, nil
}

func (p *PostgresChecker) Name() string { return "postgres" }

// HealthCheck runs a trivial query
func (p *PostgresChecker) HealthCheck(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres unavailable: %w", err)
	}
	return nil
}

// Close closes the probe connection
func (p *PostgresChecker) Close() error {
	return p.db.Close()
}
