package api

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/middlewares/jwtauth"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/security"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/users"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

// AdminHandler serves the security dashboard. Every request is itself
// recorded as a security event.
type AdminHandler struct {
	reporter SecurityReporter
	monitor  SecurityMonitor
}

type resolveAlertRequest struct {
	Notes string `json:"notes"`
}

func (h *AdminHandler) auditRead(ctx *fiber.Ctx) {
	claims := jwtauth.GetClaims(ctx)
	access := security.APIAccess{
		IPAddress: ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
		Method:    ctx.Method(),
		Path:      ctx.OriginalURL(),
		Sensitive: true,
	}
	if claims != nil {
		access.UserID = &claims.UserID
	}
	h.monitor.LogAPIAccess(ctx.UserContext(), access).Log(ctx.UserContext())
}

func (h *AdminHandler) auditAction(ctx *fiber.Ctx, action string, details map[string]interface{}) {
	claims := jwtauth.GetClaims(ctx)
	if claims == nil {
		return
	}
	h.monitor.LogAdminAction(ctx.UserContext(), claims.UserID, ctx.IP(), ctx.Get(fiber.HeaderUserAgent), action, details).
		Log(ctx.UserContext())
}

func parseTimeQuery(ctx *fiber.Ctx, key string) (*time.Time, error) {
	value := ctx.Query(key)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errors.New("Invalid " + key + " timestamp, expected RFC3339.")
	}
	t = t.UTC()
	return &t, nil
}

func parseLogQuery(ctx *fiber.Ctx) (security.LogQuery, error) {
	var (
		query security.LogQuery
		err   error
	)
	if value := ctx.Query("userId"); value != "" {
		userID, err := cast.ToUintE(value)
		if err != nil {
			return query, errors.New("Invalid userId.")
		}
		query.UserID = &userID
	}
	if value := ctx.Query("eventType"); value != "" {
		if query.EventType, err = model.ParseEventType(value); err != nil {
			return query, errors.New("Invalid eventType.")
		}
	}
	if value := ctx.Query("severity"); value != "" {
		if query.Severity, err = model.ParseSeverity(value); err != nil {
			return query, errors.New("Invalid severity.")
		}
	}
	if query.From, err = parseTimeQuery(ctx, "from"); err != nil {
		return query, err
	}
	if query.To, err = parseTimeQuery(ctx, "to"); err != nil {
		return query, err
	}
	query.Limit = ctx.QueryInt("limit")
	query.Offset = ctx.QueryInt("offset")
	return query, nil
}

func (h *AdminHandler) GetSecurityLogs(ctx *fiber.Ctx) error {
	h.auditRead(ctx)
	query, err := parseLogQuery(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	page, err := h.reporter.GetSecurityLogs(ctx.UserContext(), query)
	if err != nil {
		slog.ErrorContext(ctx.UserContext(), "Failed to get security logs", "error", err)
		page = &security.LogPage{Logs: []*model.SecurityEvent{}}
	}
	return ctx.JSON(NewDataResponse(page))
}

func (h *AdminHandler) GetSecurityStats(ctx *fiber.Ctx) error {
	h.auditRead(ctx)
	stats, err := h.reporter.GetSecurityStats(ctx.UserContext())
	if err != nil {
		slog.ErrorContext(ctx.UserContext(), "Failed to get security stats", "error", err)
		stats = &security.SecurityStats{
			EventsByType:     map[model.EventType]int64{},
			EventsBySeverity: map[model.Severity]int64{},
		}
	}
	return ctx.JSON(NewDataResponse(stats))
}

func (h *AdminHandler) GetSecurityLogStats(ctx *fiber.Ctx) error {
	h.auditRead(ctx)
	days := ctx.QueryInt("days")
	if days < 0 {
		return badRequest(ctx, "Invalid days.")
	}
	stats, err := h.reporter.GetSecurityLogStats(ctx.UserContext(), days)
	if err != nil {
		slog.ErrorContext(ctx.UserContext(), "Failed to get security log stats", "error", err)
		stats = &security.SecurityLogStats{
			WindowDays:       days,
			EventsByType:     map[model.EventType]int64{},
			EventsBySeverity: map[model.Severity]int64{},
		}
	}
	return ctx.JSON(NewDataResponse(stats))
}

func (h *AdminHandler) GetUnresolvedAlerts(ctx *fiber.Ctx) error {
	h.auditRead(ctx)
	alerts, err := h.reporter.GetUnresolvedAlerts(ctx.UserContext(), ctx.QueryInt("limit"))
	if err != nil {
		slog.ErrorContext(ctx.UserContext(), "Failed to get unresolved alerts", "error", err)
		alerts = []*security.AlertView{}
	}
	return ctx.JSON(NewDataResponse(alerts))
}

func (h *AdminHandler) PostResolveAlert(ctx *fiber.Ctx) error {
	alertID, err := strconv.ParseUint(ctx.Params("id"), 10, 64)
	if err != nil {
		return badRequest(ctx, "Invalid alert id.")
	}
	var req resolveAlertRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return badRequest(ctx, "Invalid request body")
		}
	}
	claims := jwtauth.GetClaims(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}

	resolved, err := h.reporter.ResolveSecurityAlert(ctx.UserContext(), alertID, claims.UserID, req.Notes)
	if errors.Is(err, security.ErrAlertNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(NewErrorResponse(fiber.StatusNotFound, "Alert not found"))
	}
	if err != nil {
		return err
	}
	h.auditAction(ctx, "resolve_alert", map[string]interface{}{"alertId": alertID})
	return ctx.JSON(NewDataResponse(fiber.Map{"resolved": resolved}))
}

func (h *AdminHandler) PostUnlockUser(ctx *fiber.Ctx) error {
	userID, err := cast.ToUintE(ctx.Params("id"))
	if err != nil || userID == 0 {
		return badRequest(ctx, "Invalid user id.")
	}
	claims := jwtauth.GetClaims(ctx)
	if claims == nil {
		return fiber.ErrUnauthorized
	}

	result, err := h.monitor.UnlockAccount(ctx.UserContext(), claims.UserID, userID, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	if errors.Is(err, users.ErrUserNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(NewErrorResponse(fiber.StatusNotFound, "User not found"))
	}
	if err != nil {
		return err
	}
	result.Log(ctx.UserContext())
	h.auditAction(ctx, "unlock_user", map[string]interface{}{"userId": userID})
	return ctx.JSON(NewDataResponse(fiber.Map{"unlocked": true}))
}

func NewAdminHandler(reporter SecurityReporter, monitor SecurityMonitor) *AdminHandler {
	return &AdminHandler{
		reporter: reporter,
		monitor:  monitor,
	}
}
