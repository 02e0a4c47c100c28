package api

import (
	"context"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/auth"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/security"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/users"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
)

type UserService interface {
	CreateUser(ctx context.Context, opts users.CreateUserOptions) (*model.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	VerifyPassword(user *model.User, password string) error
}

type TokenService interface {
	Issue(user *model.User) (string, *auth.Claims, error)
	Verify(ctx context.Context, token string) (*auth.Claims, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

type SecurityMonitor interface {
	IsAccountLocked(ctx context.Context, user *model.User) (bool, error)
	LogAuthFailure(ctx context.Context, username, ip, userAgent, reason string) (security.FailureOutcome, security.BestEffort)
	LogLockedLogin(ctx context.Context, user *model.User, ip, userAgent string) security.BestEffort
	LogAuthSuccess(ctx context.Context, userID uint, ip, userAgent string) (uint64, security.BestEffort)
	LogRegistration(ctx context.Context, userID uint, ip, userAgent string) (uint64, security.BestEffort)
	LogLogout(ctx context.Context, userID uint, ip, userAgent string) security.BestEffort
	LogAPIAccess(ctx context.Context, access security.APIAccess) security.BestEffort
	LogAdminAction(ctx context.Context, adminID uint, ip, userAgent, action string, details map[string]interface{}) security.BestEffort
	LogSuspiciousActivity(ctx context.Context, userID *uint, ip, userAgent string, details map[string]interface{}) security.BestEffort
	UnlockAccount(ctx context.Context, adminID, userID uint, ip, userAgent string) (security.BestEffort, error)
}

type SecurityReporter interface {
	GetSecurityStats(ctx context.Context) (*security.SecurityStats, error)
	GetSecurityLogStats(ctx context.Context, windowDays int) (*security.SecurityLogStats, error)
	GetSecurityLogs(ctx context.Context, query security.LogQuery) (*security.LogPage, error)
	ResolveSecurityAlert(ctx context.Context, alertID uint64, resolvedBy uint, notes string) (bool, error)
	GetUnresolvedAlerts(ctx context.Context, limit int) ([]*security.AlertView, error)
}
