package container

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/do"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/records"
	"github.com/serroba/rowquota/internal/store"
	"go.uber.org/zap"
)

// Seeder applies a fixture to a backing store.
type Seeder interface {
	Apply(ctx context.Context, fixture *store.Fixture) error
}

type memorySeeder struct {
	mem *store.MemoryStore
}

func (s memorySeeder) Apply(_ context.Context, fixture *store.Fixture) error {
	s.mem.Apply(fixture)

	return nil
}

// StorePackage provides the records.DataSource and auth.Source selected by
// Options. When a seed file is configured it is applied to both before the
// first request.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*store.MemoryStore, error) {
		return store.NewMemoryStore(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*store.PostgresStore, error) {
		pool := do.MustInvoke[*PostgresPool](i)

		return store.NewPostgresStore(pool.Pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*store.SQLiteStore, error) {
		db := do.MustInvoke[*SQLiteDB](i)

		return store.NewSQLiteStore(db.DB), nil
	})

	do.Provide(injector, func(i *do.Injector) (*store.RedisKeyStore, error) {
		client := do.MustInvoke[*RedisClient](i)

		return store.NewRedisKeyStore(client.Client), nil
	})

	do.Provide(injector, func(i *do.Injector) (records.DataSource, error) {
		opts := do.MustInvoke[*Options](i)

		source, _, err := recordBackend(i, opts.Backend)
		if err != nil {
			return nil, err
		}

		if err := seedOnStartup(i); err != nil {
			return nil, err
		}

		return source, nil
	})

	do.Provide(injector, func(i *do.Injector) (auth.Source, error) {
		opts := do.MustInvoke[*Options](i)

		// Resolving the data source first guarantees the seed has been applied.
		_ = do.MustInvoke[records.DataSource](i)

		return keyBackend(i, opts.KeyBackend())
	})
}

func recordBackend(i *do.Injector, name string) (records.DataSource, Seeder, error) {
	switch name {
	case BackendMemory:
		mem := do.MustInvoke[*store.MemoryStore](i)

		return mem, memorySeeder{mem: mem}, nil
	case BackendPostgres:
		pg := do.MustInvoke[*store.PostgresStore](i)

		return pg, pg, nil
	case BackendSQLite:
		lite := do.MustInvoke[*store.SQLiteStore](i)

		return lite, lite, nil
	default:
		return nil, nil, errors.Errorf("unknown backend %q", name)
	}
}

func keyBackend(i *do.Injector, name string) (auth.Source, error) {
	switch name {
	case BackendMemory:
		return do.MustInvoke[*store.MemoryStore](i), nil
	case BackendPostgres:
		return do.MustInvoke[*store.PostgresStore](i), nil
	case BackendSQLite:
		return do.MustInvoke[*store.SQLiteStore](i), nil
	case BackendRedis:
		return do.MustInvoke[*store.RedisKeyStore](i), nil
	default:
		return nil, errors.Errorf("unknown auth backend %q", name)
	}
}

// Seeders returns the distinct stores a fixture must be applied to.
func Seeders(i *do.Injector) ([]Seeder, error) {
	opts := do.MustInvoke[*Options](i)

	_, recordSeeder, err := recordBackend(i, opts.Backend)
	if err != nil {
		return nil, err
	}

	seeders := []Seeder{recordSeeder}

	if opts.KeyBackend() == BackendRedis {
		seeders = append(seeders, do.MustInvoke[*store.RedisKeyStore](i))
	}

	return seeders, nil
}

// Seed applies fixture to every configured store.
func Seed(ctx context.Context, i *do.Injector, fixture *store.Fixture) error {
	seeders, err := Seeders(i)
	if err != nil {
		return err
	}

	for _, s := range seeders {
		if err := s.Apply(ctx, fixture); err != nil {
			return err
		}
	}

	return nil
}

func seedOnStartup(i *do.Injector) error {
	opts := do.MustInvoke[*Options](i)
	if opts.SeedFile == "" {
		return nil
	}

	fixture, err := store.LoadFixture(opts.SeedFile)
	if err != nil {
		return err
	}

	if err := Seed(context.Background(), i, fixture); err != nil {
		return errors.WithMessage(err, "seed stores")
	}

	do.MustInvoke[*zap.Logger](i).Info("seed applied",
		zap.String("file", opts.SeedFile),
		zap.Int("records", len(fixture.Records)),
		zap.Int("keys", len(fixture.KeyLimits)),
	)

	return nil
}
