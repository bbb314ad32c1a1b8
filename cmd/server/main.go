package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/rowquota/internal/container"
	"github.com/serroba/rowquota/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; flags and SERVICE_* variables still apply.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		if err := options.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		injector := container.New(options)
		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			// Invoking the API registers every route on the router.
			if _, err := do.Invoke[huma.API](injector); err != nil {
				logger.Fatal("failed to build api", zap.Error(err))
			}

			router := do.MustInvoke[*chi.Mux](injector)

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("backend", options.Backend),
				zap.String("auth_backend", options.KeyBackend()),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			_ = logger.Sync()
		})
	})

	cli.Root().AddCommand(migrateCommand(), seedCommand(), openAPICommand())

	cli.Run()
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured SQL backend",
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, options *container.Options) {
			injector := container.New(options)
			defer func() { _ = injector.Shutdown() }()

			logger := do.MustInvoke[*zap.Logger](injector)

			switch options.Backend {
			case container.BackendPostgres:
				pg := do.MustInvoke[*store.PostgresStore](injector)
				if err := pg.Migrate(context.Background()); err != nil {
					logger.Fatal("migration failed", zap.Error(err))
				}
			case container.BackendSQLite:
				// Opening the database applies the schema.
				_ = do.MustInvoke[*container.SQLiteDB](injector)
			default:
				logger.Fatal("nothing to migrate", zap.String("backend", options.Backend))
			}

			logger.Info("schema applied", zap.String("backend", options.Backend))
		}),
	}
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Load a YAML fixture into the configured backends",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(_ *cobra.Command, args []string, options *container.Options) {
			path := options.SeedFile
			if len(args) == 1 {
				path = args[0]
			}

			injector := container.New(options)
			defer func() { _ = injector.Shutdown() }()

			logger := do.MustInvoke[*zap.Logger](injector)

			if path == "" {
				logger.Fatal("no fixture given")
			}

			fixture, err := store.LoadFixture(path)
			if err != nil {
				logger.Fatal("failed to load fixture", zap.Error(err))
			}

			if err := container.Seed(context.Background(), injector, fixture); err != nil {
				logger.Fatal("seed failed", zap.Error(err))
			}

			logger.Info("fixture applied",
				zap.String("file", path),
				zap.Int("records", len(fixture.Records)),
				zap.Int("keys", len(fixture.KeyLimits)),
			)
		}),
	}
}

func openAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			options.Backend = container.BackendMemory
			options.AuthBackend = ""
			options.SeedFile = ""
			options.Analytics = false
			options.RateLimitStore = container.BackendMemory

			injector := container.New(options)
			defer func() { _ = injector.Shutdown() }()

			spec, err := do.MustInvoke[huma.API](injector).OpenAPI().YAML()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			_, _ = cmd.OutOrStdout().Write(spec)
		}),
	}
}
