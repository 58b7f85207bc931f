package wins

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/exportwins/winsmi/pkg/observability"
)

const winColumns = `id, match_id, company_name, country, sector, date,
	total_expected_export_value, confirmed, created_at`

// PostgresConfig configures the connection pool
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// PostgresStore reads wins from the reporting database
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	metrics *observability.Metrics
}

// OpenPostgres connects to PostgreSQL and verifies the connection
func OpenPostgres(ctx context.Context, config PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps db. metrics may be nil.
func NewPostgresStore(db *sql.DB, timeout time.Duration, metrics *observability.Metrics) *PostgresStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout, metrics: metrics}
}

func (s *PostgresStore) ListAfter(ctx context.Context, cursor *Cursor, limit int) ([]Win, error) {
	if cursor == nil {
		return s.query(ctx, "list_after",
			`SELECT `+winColumns+` FROM wins ORDER BY created_at, id LIMIT $1`,
			limit)
	}
	return s.query(ctx, "list_after",
		`SELECT `+winColumns+` FROM wins WHERE (created_at, id) > ($1, $2) ORDER BY created_at, id LIMIT $3`,
		cursor.CreatedAt, cursor.ID, limit)
}

func (s *PostgresStore) ListByMatchIDs(ctx context.Context, matchIDs []int64) ([]Win, error) {
	return s.query(ctx, "list_by_match_ids",
		`SELECT `+winColumns+` FROM wins WHERE match_id = ANY($1) ORDER BY created_at, id`,
		pq.Array(matchIDs))
}

func (s *PostgresStore) ListByFinancialYear(ctx context.Context, fy int) ([]Win, error) {
	start, end := FinancialYearBounds(fy)
	return s.query(ctx, "list_by_financial_year",
		`SELECT `+winColumns+` FROM wins WHERE date >= $1 AND date < $2 ORDER BY date, id`,
		start, end)
}

func (s *PostgresStore) query(ctx context.Context, name, query string, args ...interface{}) (wins []Win, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery(name, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wins: %w", err)
	}
	defer rows.Close()

	wins = []Win{}
	for rows.Next() {
		var w Win
		if err := rows.Scan(
			&w.ID,
			&w.MatchID,
			&w.CompanyName,
			&w.Country,
			&w.Sector,
			&w.Date,
			&w.TotalExpectedExportValue,
			&w.Confirmed,
			&w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan win: %w", err)
		}
		wins = append(wins, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wins: %w", err)
	}
	return wins, nil
}
