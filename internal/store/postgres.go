package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/records"
)

// PostgresStore is a PostgreSQL implementation of records.DataSource and auth.Source.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store over a shared pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) SelectAll(ctx context.Context) ([]records.Record, error) {
	query := `
		SELECT id, col1
		FROM records
		ORDER BY id ASC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, records.NewSourceError("select all", errors.WithMessage(err, "query records"))
	}

	result, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, records.NewSourceError("select all", errors.WithMessage(err, "scan records"))
	}

	return result, nil
}

func (p *PostgresStore) SelectLast(ctx context.Context) (records.Record, error) {
	query := `
		SELECT id, col1
		FROM records
		ORDER BY id DESC
		LIMIT 1
	`

	var rec records.Record

	err := p.pool.QueryRow(ctx, query).Scan(&rec.ID, &rec.Col1)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return records.Record{}, records.NewSourceError("select last", records.ErrEmpty)
		}

		return records.Record{}, records.NewSourceError("select last", errors.WithMessage(err, "query last record"))
	}

	return rec, nil
}

func (p *PostgresStore) KeyLimit(ctx context.Context, key string) (auth.KeyLimit, bool, error) {
	if limit, ok := auth.Reserved(key); ok {
		return limit, true, nil
	}

	query := `
		SELECT max_rows
		FROM key_limits
		WHERE key = $1
	`

	var maxRows int32

	err := p.pool.QueryRow(ctx, query, key).Scan(&maxRows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.KeyLimit{}, false, nil
		}

		return auth.KeyLimit{}, false, auth.NewLookupError(errors.WithMessage(err, "query key limit"))
	}

	return auth.Limit(int(maxRows)), true, nil
}

// Migrate applies PostgresSchema.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, PostgresSchema)

	return errors.WithMessage(err, "apply postgres schema")
}

// Apply writes a fixture's rows and key limits, replacing existing ids and keys.
func (p *PostgresStore) Apply(ctx context.Context, fixture *Fixture) error {
	batch := &pgx.Batch{}

	for _, rec := range fixture.Records {
		batch.Queue(`
			INSERT INTO records (id, col1) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET col1 = EXCLUDED.col1
		`, rec.ID, rec.Col1)
	}

	for key, maxRows := range fixture.KeyLimits {
		batch.Queue(`
			INSERT INTO key_limits (key, max_rows) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET max_rows = EXCLUDED.max_rows
		`, key, maxRows)
	}

	return errors.WithMessage(p.pool.SendBatch(ctx, batch).Close(), "apply fixture")
}

func scanRecord(row pgx.CollectableRow) (records.Record, error) {
	var rec records.Record
	err := row.Scan(&rec.ID, &rec.Col1)

	return rec, err
}

// Compile-time checks.
var (
	_ records.DataSource = (*PostgresStore)(nil)
	_ auth.Source        = (*PostgresStore)(nil)
)
