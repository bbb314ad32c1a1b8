package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/records"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// OpenSQLite opens the database at path and applies SQLiteSchema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithMessage(err, "open sqlite")
	}

	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()

		return nil, errors.WithMessage(err, "enable wal")
	}

	for _, stmt := range SQLiteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, errors.WithMessage(err, "apply sqlite schema")
		}
	}

	return db, nil
}

// SQLiteStore is a SQLite implementation of records.DataSource and auth.Source.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store over a shared handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SelectAll(ctx context.Context) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, col1 FROM records ORDER BY id ASC`)
	if err != nil {
		return nil, records.NewSourceError("select all", errors.WithMessage(err, "query records"))
	}
	defer rows.Close()

	result := make([]records.Record, 0)

	for rows.Next() {
		var rec records.Record
		if err := rows.Scan(&rec.ID, &rec.Col1); err != nil {
			return nil, records.NewSourceError("select all", errors.WithMessage(err, "scan record"))
		}

		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, records.NewSourceError("select all", errors.WithMessage(err, "iterate records"))
	}

	return result, nil
}

func (s *SQLiteStore) SelectLast(ctx context.Context) (records.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, col1 FROM records ORDER BY id DESC LIMIT 1`)

	var rec records.Record
	if err := row.Scan(&rec.ID, &rec.Col1); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.Record{}, records.NewSourceError("select last", records.ErrEmpty)
		}

		return records.Record{}, records.NewSourceError("select last", errors.WithMessage(err, "query last record"))
	}

	return rec, nil
}

func (s *SQLiteStore) KeyLimit(ctx context.Context, key string) (auth.KeyLimit, bool, error) {
	if limit, ok := auth.Reserved(key); ok {
		return limit, true, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT max_rows FROM key_limits WHERE key = ?`, key)

	var maxRows int
	if err := row.Scan(&maxRows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.KeyLimit{}, false, nil
		}

		return auth.KeyLimit{}, false, auth.NewLookupError(errors.WithMessage(err, "query key limit"))
	}

	return auth.Limit(maxRows), true, nil
}

// Apply writes a fixture's rows and key limits in one transaction.
func (s *SQLiteStore) Apply(ctx context.Context, fixture *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "begin fixture")
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range fixture.Records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, col1) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET col1 = excluded.col1`,
			rec.ID, rec.Col1,
		); err != nil {
			return errors.WithMessage(err, "insert record")
		}
	}

	for key, maxRows := range fixture.KeyLimits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO key_limits (key, max_rows) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET max_rows = excluded.max_rows`,
			key, maxRows,
		); err != nil {
			return errors.WithMessage(err, "insert key limit")
		}
	}

	return errors.WithMessage(tx.Commit(), "commit fixture")
}

// Compile-time checks.
var (
	_ records.DataSource = (*SQLiteStore)(nil)
	_ auth.Source        = (*SQLiteStore)(nil)
)
