package api

import (
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/middlewares/jwtauth"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/ratelimit"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/gofiber/fiber/v2"
)

const (
	PurposeLogin    = "login"
	PurposeRegister = "register"
	PurposeAPI      = "api"
)

type RouterConfig struct {
	UserService  UserService
	TokenService TokenService
	Monitor      SecurityMonitor
	Reporter     SecurityReporter

	// A nil limiter disables rate limiting for its routes.
	LoginLimiter    ratelimit.Limiter
	RegisterLimiter ratelimit.Limiter
	APILimiter      ratelimit.Limiter
}

func tooManyRequests(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusTooManyRequests).JSON(
		NewErrorResponse(fiber.StatusTooManyRequests, "Too many requests, please try again later."),
	)
}

func rateLimited(limiter ratelimit.Limiter, purpose string, onLimit func(*fiber.Ctx, ratelimit.Result)) fiber.Handler {
	if limiter == nil {
		return func(ctx *fiber.Ctx) error { return ctx.Next() }
	}
	return ratelimit.New(ratelimit.Config{
		Limiter:        limiter,
		Purpose:        purpose,
		OnLimitReached: onLimit,
		LimitReached:   tooManyRequests,
	})
}

func SetupRoutes(router fiber.Router, config RouterConfig) {
	var (
		authHandler  = NewAuthHandler(config.UserService, config.TokenService, config.Monitor)
		adminHandler = NewAdminHandler(config.Reporter, config.Monitor)
		requireAuth  = jwtauth.New(config.TokenService)
	)

	authRouter := router.Group("/api/auth")
	authRouter.Post("/register",
		rateLimited(config.RegisterLimiter, PurposeRegister, authHandler.OnRateLimited(PurposeRegister)),
		authHandler.PostRegister,
	)
	authRouter.Post("/login",
		rateLimited(config.LoginLimiter, PurposeLogin, authHandler.OnRateLimited(PurposeLogin)),
		authHandler.PostLogin,
	)
	authRouter.Post("/logout", requireAuth, authHandler.PostLogout)
	authRouter.Get("/me", requireAuth, rateLimited(config.APILimiter, PurposeAPI, nil), authHandler.GetMe)

	adminRouter := router.Group("/api/admin",
		requireAuth,
		jwtauth.RequireRole(model.RoleAdmin),
		rateLimited(config.APILimiter, PurposeAPI, nil),
	)
	adminRouter.Get("/security/logs", adminHandler.GetSecurityLogs)
	adminRouter.Get("/security/stats", adminHandler.GetSecurityStats)
	adminRouter.Get("/security/log-stats", adminHandler.GetSecurityLogStats)
	adminRouter.Get("/security/alerts", adminHandler.GetUnresolvedAlerts)
	adminRouter.Post("/security/alerts/:id/resolve", adminHandler.PostResolveAlert)
	adminRouter.Post("/users/:id/unlock", adminHandler.PostUnlockUser)
}
