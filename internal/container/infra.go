package container

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/rowquota/internal/store"
	"go.uber.org/zap"
)

// RedisClient owns the shared Redis connection.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool owns the shared PostgreSQL pool.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// SQLiteDB owns the shared SQLite handle.
type SQLiteDB struct {
	*sql.DB
}

func (d *SQLiteDB) Shutdown() error {
	return d.Close()
}

// RedisPackage provides the Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage provides the PostgreSQL pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, errors.WithMessage(err, "create postgres pool")
		}

		logger.Info("postgres pool created", zap.Int32("max_conns", pool.Config().MaxConns))

		return &PostgresPool{Pool: pool}, nil
	})
}

// SQLitePackage provides the SQLite handle with the schema applied.
func SQLitePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*SQLiteDB, error) {
		opts := do.MustInvoke[*Options](i)

		db, err := store.OpenSQLite(context.Background(), opts.SQLitePath)
		if err != nil {
			return nil, err
		}

		return &SQLiteDB{DB: db}, nil
	})
}
