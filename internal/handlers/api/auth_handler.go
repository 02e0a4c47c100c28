package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/middlewares/jwtauth"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/ratelimit"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/security"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/users"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/gofiber/fiber/v2"
)

const (
	reasonUserNotFound    = "user_not_found"
	reasonInvalidPassword = "invalid_password"
)

type AuthHandler struct {
	userService  UserService
	tokenService TokenService
	monitor      SecurityMonitor
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func userInfo(user *model.User) UserInfoResponse {
	return UserInfoResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, message))
}

func (h *AuthHandler) loginResponse(ctx *fiber.Ctx, status int, user *model.User) error {
	token, claims, err := h.tokenService.Issue(user)
	if err != nil {
		return err
	}
	return ctx.Status(status).JSON(NewDataResponse(LoginResponse{
		User:        userInfo(user),
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Unix(),
	}))
}

func (h *AuthHandler) accountLocked(ctx *fiber.Ctx, lockUntil *time.Time) error {
	detail := APIErrorDetail{Domain: "auth", Reason: "accountLocked", Message: "Account is locked."}
	if lockUntil != nil {
		detail.Message = "Account is locked until " + lockUntil.UTC().Format(time.RFC3339) + "."
	}
	return ctx.Status(fiber.StatusLocked).JSON(
		NewErrorResponse(fiber.StatusLocked, "Account is temporarily locked", detail),
	)
}

func (h *AuthHandler) PostRegister(ctx *fiber.Ctx) error {
	var req registerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := validateUsername(req.Username); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := validateEmail(req.Email); err != nil {
		return badRequest(ctx, err.Error())
	}
	if err := validatePassword(req.Password); err != nil {
		return badRequest(ctx, err.Error())
	}

	user, err := h.userService.CreateUser(ctx.UserContext(), users.CreateUserOptions{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, users.ErrUsernameTaken) || errors.Is(err, users.ErrEmailRegistered) {
		return ctx.Status(fiber.StatusConflict).JSON(NewErrorResponse(fiber.StatusConflict, err.Error()))
	}
	if err != nil {
		return err
	}

	_, result := h.monitor.LogRegistration(ctx.UserContext(), user.ID, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	result.Log(ctx.UserContext())
	return h.loginResponse(ctx, fiber.StatusCreated, user)
}

func (h *AuthHandler) PostLogin(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.Login == "" || req.Password == "" {
		return badRequest(ctx, "Login and password are required.")
	}
	var (
		reqCtx    = ctx.UserContext()
		ip        = ctx.IP()
		userAgent = ctx.Get(fiber.HeaderUserAgent)
	)

	user, err := h.userService.GetUserByUsernameOrEmail(reqCtx, req.Login)
	if errors.Is(err, users.ErrUserNotFound) {
		_, result := h.monitor.LogAuthFailure(reqCtx, req.Login, ip, userAgent, reasonUserNotFound)
		result.Log(reqCtx)
		return ctx.Status(fiber.StatusUnauthorized).JSON(
			NewErrorResponse(fiber.StatusUnauthorized, "Invalid username or password"),
		)
	}
	if err != nil {
		return err
	}

	locked, err := h.monitor.IsAccountLocked(reqCtx, user)
	if err != nil {
		slog.ErrorContext(reqCtx, "Failed to check account lock", "userID", user.ID, "error", err)
		locked = user.LockActive(time.Now())
	}
	if locked {
		h.monitor.LogLockedLogin(reqCtx, user, ip, userAgent).Log(reqCtx)
		return h.accountLocked(ctx, user.LockUntil)
	}

	if err := h.userService.VerifyPassword(user, req.Password); err != nil {
		outcome, result := h.monitor.LogAuthFailure(reqCtx, user.Username, ip, userAgent, reasonInvalidPassword)
		result.Log(reqCtx)
		if outcome.Locked {
			return h.accountLocked(ctx, outcome.LockUntil)
		}
		return ctx.Status(fiber.StatusUnauthorized).JSON(
			NewErrorResponse(fiber.StatusUnauthorized, "Invalid username or password"),
		)
	}

	_, result := h.monitor.LogAuthSuccess(reqCtx, user.ID, ip, userAgent)
	result.Log(reqCtx)
	return h.loginResponse(ctx, fiber.StatusOK, user)
}

func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	claims := jwtauth.GetClaims(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	if err := h.tokenService.Revoke(ctx.UserContext(), claims); err != nil {
		return err
	}
	h.monitor.LogLogout(ctx.UserContext(), claims.UserID, ctx.IP(), ctx.Get(fiber.HeaderUserAgent)).Log(ctx.UserContext())
	return ctx.JSON(NewDataResponse(fiber.Map{"loggedOut": true}))
}

func (h *AuthHandler) GetMe(ctx *fiber.Ctx) error {
	claims := jwtauth.GetClaims(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}
	h.monitor.LogAPIAccess(ctx.UserContext(), security.APIAccess{
		UserID:    &claims.UserID,
		IPAddress: ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
		Method:    ctx.Method(),
		Path:      ctx.Path(),
	}).Log(ctx.UserContext())
	return ctx.JSON(NewDataResponse(UserInfoResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}))
}

// OnRateLimited records a suspicious_activity event when a client trips an
// auth endpoint rate limit.
func (h *AuthHandler) OnRateLimited(purpose string) func(ctx *fiber.Ctx, res ratelimit.Result) {
	return func(ctx *fiber.Ctx, res ratelimit.Result) {
		h.monitor.LogSuspiciousActivity(ctx.UserContext(), nil, ctx.IP(), ctx.Get(fiber.HeaderUserAgent), map[string]interface{}{
			"reason":       "rate_limit_exceeded",
			"purpose":      purpose,
			"path":         ctx.Path(),
			"limit":        res.Limit,
			"msBeforeNext": res.MsBeforeNext,
		}).Log(ctx.UserContext())
	}
}

func NewAuthHandler(userService UserService, tokenService TokenService, monitor SecurityMonitor) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokenService: tokenService,
		monitor:      monitor,
	}
}
