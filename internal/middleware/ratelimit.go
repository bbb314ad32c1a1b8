package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a Huma middleware that limits requests per client,
// identified by IP and User-Agent. The access key plays no part in the bucket,
// so rotating keys does not reset the count.
// Operations can override or disable the limit through ratelimit.MetadataKey.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		var override int64

		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil {
			if cfg.Disabled {
				next(ctx)

				return
			}

			override = cfg.Max
		}

		key := limitKey(ctx)

		decision, err := limiter.Allow(ctx.Context(), key, override)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", ctx.URL().Path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		ctx.SetHeader("X-RateLimit-Limit", strconv.FormatInt(decision.Max, 10))
		ctx.SetHeader("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining(), 10))

		if !decision.Allowed {
			logger.Warn("rate limit exceeded",
				zap.String("client", key),
				zap.String("path", ctx.URL().Path),
				zap.Int64("count", decision.Count),
				zap.Int64("max", decision.Max),
			)

			ctx.SetHeader("Retry-After", strconv.Itoa(int(decision.Window.Seconds())))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded: %d requests per %s", decision.Max, decision.Window))

			return
		}

		next(ctx)
	}
}

// limitKey identifies the caller by address and User-Agent.
func limitKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return "client:" + hex.EncodeToString(hash[:])
}
