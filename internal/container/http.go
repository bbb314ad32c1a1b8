package container

import (
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"github.com/pkg/errors"
	"github.com/samber/do"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/handlers"
	"github.com/serroba/rowquota/internal/health"
	"github.com/serroba/rowquota/internal/messaging"
	"github.com/serroba/rowquota/internal/middleware"
	"github.com/serroba/rowquota/internal/ratelimit"
	"github.com/serroba/rowquota/internal/records"
	"github.com/serroba/rowquota/internal/store"
	"github.com/serroba/rowquota/internal/usage"
	"go.uber.org/zap"
)

const requestIDLength = 21

// RateLimitPackage provides the per-key request limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)

		var counters ratelimit.Store = store.NewRateLimitMemoryStore()

		if opts.RateLimitStore == BackendRedis {
			seq, err := nanoid.Standard(requestIDLength)
			if err != nil {
				return nil, errors.WithMessage(err, "create sequence generator")
			}

			counters = store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i).Client, seq)
		}

		return ratelimit.NewSlidingWindowLimiter(counters, int64(opts.RateLimit), time.Minute), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			metrics.WritePrometheus(w, true)
		})

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		source, err := do.Invoke[records.DataSource](i)
		if err != nil {
			return nil, err
		}

		keys, err := do.Invoke[auth.Source](i)
		if err != nil {
			return nil, err
		}

		newID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, errors.WithMessage(err, "create request id generator")
		}

		api := humachi.New(router, huma.DefaultConfig("Row Quota", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(newID))

		if opts.RateLimit > 0 {
			api.UseMiddleware(middleware.RateLimiter(api, do.MustInvoke[ratelimit.Limiter](i), logger))
		}

		api.UseMiddleware(middleware.WithDataSource(source))

		publish := do.MustInvoke[messaging.Publish[usage.ListedEvent]](i)
		handlers.RegisterRoutes(api, handlers.NewRecordsHandler(source, keys, publish, logger))
		health.RegisterRoutes(api, health.NewHandler(healthChecks(i, opts)))

		return api, nil
	})
}

func healthChecks(i *do.Injector, opts *Options) map[string]health.Checker {
	checks := make(map[string]health.Checker)

	if opts.Backend == BackendPostgres || opts.KeyBackend() == BackendPostgres {
		checks[BackendPostgres] = health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool)
	}

	if opts.Backend == BackendSQLite || opts.KeyBackend() == BackendSQLite {
		checks[BackendSQLite] = health.NewSQLChecker(do.MustInvoke[*SQLiteDB](i).DB)
	}

	if opts.usesRedis() {
		checks[BackendRedis] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	return checks
}

// New builds an injector with every server package registered.
func New(options *Options) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	SQLitePackage(injector)
	StorePackage(injector)
	RateLimitPackage(injector)
	PublisherGroupPackage(injector)
	HTTPPackage(injector)

	return injector
}
