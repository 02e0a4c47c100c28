package ratelimit

import (
	"log/slog"
	"strconv"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	Limiter Limiter
	Purpose string

	// KeyGenerator defaults to the client IP.
	KeyGenerator func(ctx *fiber.Ctx) string

	// OnLimitReached runs before the 429 response is written.
	OnLimitReached func(ctx *fiber.Ctx, res Result)

	// LimitReached writes the rejection. It defaults to a bare 429.
	LimitReached fiber.Handler
}

func New(config Config) fiber.Handler {
	if config.KeyGenerator == nil {
		config.KeyGenerator = func(ctx *fiber.Ctx) string {
			return ctx.IP()
		}
	}
	if config.LimitReached == nil {
		config.LimitReached = func(ctx *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
	}
	return func(ctx *fiber.Ctx) error {
		key := config.KeyGenerator(ctx) + ":" + config.Purpose
		res, err := config.Limiter.Check(ctx.UserContext(), key)
		if err != nil {
			// an unavailable limiter store must not take the endpoint down
			slog.Error("Rate limiter check failed", "purpose", config.Purpose, "error", err)
			return ctx.Next()
		}

		ctx.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		ctx.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if res.Success {
			return ctx.Next()
		}

		metrics.RateLimitRejections.WithLabelValues(config.Purpose).Inc()
		retryAfter := (res.MsBeforeNext + 999) / 1000
		ctx.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
		if config.OnLimitReached != nil {
			config.OnLimitReached(ctx, res)
		}
		return config.LimitReached(ctx)
	}
}
