package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/handlers"
	"github.com/serroba/rowquota/internal/messaging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestMeta adds the request ID, client IP and user agent to the request
// context. An incoming X-Request-ID is reused, otherwise newID mints one.
// The ID is echoed back on the response.
func RequestMeta(newID func() string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := ctx.Header(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = newID()
		}

		meta := handlers.RequestMeta{
			RequestID: id,
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
		}

		ctx.SetHeader(RequestIDHeader, id)

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		newCtx = messaging.ContextWithRequestID(newCtx, id)

		next(huma.WithContext(ctx, newCtx))
	}
}
