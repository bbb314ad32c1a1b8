package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/records"
)

// WithDataSource attaches the shared data source to every request context so
// handlers can resolve it from the request instead of holding a reference.
func WithDataSource(source records.DataSource) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, records.ContextWithSource(ctx.Context(), source)))
	}
}
