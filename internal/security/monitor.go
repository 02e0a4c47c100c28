package security

import (
	"context"
	"fmt"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"gorm.io/gorm/clause"
)

const lockReasonFailedAttempts = "Too many failed login attempts"

// UserStore is the slice of the user directory the monitor needs.
type UserStore interface {
	// FindUserByLogin returns nil without error when no account matches.
	FindUserByLogin(ctx context.Context, login string) (*model.User, error)
	IncrementLoginAttempts(ctx context.Context, userID uint) (int, error)
	LockUser(ctx context.Context, userID uint, reason string, until time.Time) error
	UnlockUser(ctx context.Context, userID uint) error
	RecordLogin(ctx context.Context, userID uint, ip string, at time.Time) error
}

type FailureOutcome struct {
	UserID    *uint
	Attempts  int
	Locked    bool
	LockUntil *time.Time
}

// Monitor turns authentication outcomes into security events, account
// lockouts and brute-force alerts.
type Monitor struct {
	security *SecurityService
	users    UserStore
	events   EventRepository
}

func (m *Monitor) now() time.Time {
	return m.security.now()
}

// IsAccountLocked reports whether user may not log in right now. A timed lock
// that has run out is cleared and the failed attempt counter reset.
func (m *Monitor) IsAccountLocked(ctx context.Context, user *model.User) (bool, error) {
	now := m.now()
	if user.LockActive(now) {
		return true, nil
	}
	if !user.LockExpired(now) {
		return false, nil
	}
	if err := m.users.UnlockUser(ctx, user.ID); err != nil {
		return false, err
	}
	user.IsLocked = false
	user.LockReason = ""
	user.LockUntil = nil
	user.LoginAttempts = 0
	return false, nil
}

// LogAuthFailure records a failed login for username, locking the account once
// it reaches params.LockoutMaxAttempts failures.
func (m *Monitor) LogAuthFailure(ctx context.Context, username, ip, userAgent, reason string) (FailureOutcome, BestEffort) {
	const op = "log_auth_failure"
	var outcome FailureOutcome

	user, err := m.users.FindUserByLogin(ctx, username)
	if err != nil {
		result := bestEffort(op, err)
		_, err = m.security.RecordEvent(ctx, EventInput{
			EventType: model.EventLoginFailure,
			Severity:  model.SeverityWarning,
			IPAddress: ip,
			UserAgent: userAgent,
			Details:   map[string]interface{}{"username": username, "reason": reason},
		})
		return outcome, result.join(bestEffort(op, err))
	}

	result := bestEffort(op)
	if user != nil {
		outcome.UserID = &user.ID
		outcome.Attempts, err = m.users.IncrementLoginAttempts(ctx, user.ID)
		result = bestEffort(op, err)
	}

	_, err = m.security.RecordEvent(ctx, EventInput{
		UserID:    outcome.UserID,
		EventType: model.EventLoginFailure,
		Severity:  model.SeverityWarning,
		IPAddress: ip,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"username": username,
			"reason":   reason,
			"attempts": outcome.Attempts,
		},
	})
	result = result.join(bestEffort(op, err))
	if user == nil {
		return outcome, result
	}

	if outcome.Attempts >= params.LockoutMaxAttempts {
		lockUntil, lockResult := m.lockAccount(ctx, user, ip, userAgent, outcome.Attempts)
		result = result.join(lockResult)
		if lockUntil != nil {
			outcome.Locked = true
			outcome.LockUntil = lockUntil
		}
	}
	return outcome, result.join(m.checkBruteForce(ctx, ip, userAgent))
}

// LogLockedLogin records a login attempt against an account that is locked.
func (m *Monitor) LogLockedLogin(ctx context.Context, user *model.User, ip, userAgent string) BestEffort {
	const op = "log_locked_login"
	details := map[string]interface{}{
		"username": user.Username,
		"reason":   "account_locked",
	}
	if user.LockUntil != nil {
		details["lockUntil"] = user.LockUntil.Format(time.RFC3339)
	}
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &user.ID,
		EventType: model.EventLoginFailure,
		Severity:  model.SeverityWarning,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   details,
	})
	return bestEffort(op, err).join(m.checkBruteForce(ctx, ip, userAgent))
}

func (m *Monitor) lockAccount(ctx context.Context, user *model.User, ip, userAgent string, attempts int) (*time.Time, BestEffort) {
	const op = "lock_account"
	lockUntil := m.now().Add(params.LockoutDuration)
	if err := m.users.LockUser(ctx, user.ID, lockReasonFailedAttempts, lockUntil); err != nil {
		return nil, bestEffort(op, err)
	}

	eventID, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &user.ID,
		EventType: model.EventAccountLockout,
		Severity:  model.SeverityError,
		IPAddress: ip,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"username":  user.Username,
			"attempts":  attempts,
			"reason":    lockReasonFailedAttempts,
			"lockUntil": lockUntil.Format(time.RFC3339),
		},
	})
	if err != nil {
		return &lockUntil, bestEffort(op, err)
	}
	_, err = m.security.CreateAlert(ctx, AlertInput{
		EventID:   eventID,
		UserID:    &user.ID,
		AlertType: AlertTypeAccountLockout,
		Severity:  model.SeverityError,
		Message:   fmt.Sprintf("Account %s locked after %d failed login attempts", user.Username, attempts),
	})
	return &lockUntil, bestEffort(op, err)
}

// checkBruteForce raises one brute_force_attempt alert per source IP and window
// once the IP reaches params.BruteForceThreshold failed logins.
func (m *Monitor) checkBruteForce(ctx context.Context, ip, userAgent string) BestEffort {
	const op = "check_brute_force"
	if ip == "" {
		ip = params.UnknownIPAddress
	}
	since := m.now().Add(-params.BruteForceWindow)
	failures, err := m.events.Count(ctx,
		clause.Eq{Column: model.ColEventType, Value: model.EventLoginFailure},
		clause.Eq{Column: model.ColEventIPAddress, Value: ip},
		clause.Gte{Column: model.ColEventCreatedAt, Value: since},
	)
	if err != nil {
		return bestEffort(op, err)
	}
	if failures < params.BruteForceThreshold {
		return bestEffort(op)
	}

	reported, err := m.events.Count(ctx,
		clause.Eq{Column: model.ColEventType, Value: model.EventMultipleFailedAttempts},
		clause.Eq{Column: model.ColEventIPAddress, Value: ip},
		clause.Gte{Column: model.ColEventCreatedAt, Value: since},
	)
	if err != nil || reported > 0 {
		return bestEffort(op, err)
	}

	eventID, err := m.security.RecordEvent(ctx, EventInput{
		EventType: model.EventMultipleFailedAttempts,
		Severity:  model.SeverityError,
		IPAddress: ip,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"failedAttempts": failures,
			"windowMinutes":  int(params.BruteForceWindow / time.Minute),
		},
	})
	if err != nil {
		return bestEffort(op, err)
	}
	_, err = m.security.CreateAlert(ctx, AlertInput{
		EventID:   eventID,
		AlertType: AlertTypeBruteForceAttempt,
		Severity:  model.SeverityError,
		Message:   fmt.Sprintf("Possible brute-force attack from %s: %d failed logins in the last hour", ip, failures),
	})
	return bestEffort(op, err)
}

// LogAuthSuccess records a successful login, resets the failed attempt counter
// and runs the geographic anomaly check.
func (m *Monitor) LogAuthSuccess(ctx context.Context, userID uint, ip, userAgent string) (uint64, BestEffort) {
	const op = "log_auth_success"
	eventID, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &userID,
		EventType: model.EventLoginSuccess,
		Severity:  model.SeverityInfo,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	result := bestEffort(op, err)
	if err := m.users.RecordLogin(ctx, userID, ip, m.now()); err != nil {
		result = result.join(bestEffort(op, err))
	}
	return eventID, result.join(m.security.CheckGeographicAnomaly(ctx, userID, ip, userAgent, eventID))
}

func (m *Monitor) LogRegistration(ctx context.Context, userID uint, ip, userAgent string) (uint64, BestEffort) {
	const op = "log_registration"
	eventID, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &userID,
		EventType: model.EventRegistration,
		Severity:  model.SeverityInfo,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	return eventID, bestEffort(op, err).join(m.security.CheckGeographicAnomaly(ctx, userID, ip, userAgent, eventID))
}

func (m *Monitor) LogLogout(ctx context.Context, userID uint, ip, userAgent string) BestEffort {
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &userID,
		EventType: model.EventLogout,
		Severity:  model.SeverityInfo,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	return bestEffort("log_logout", err)
}

// UnlockAccount clears a lock on behalf of an administrator. The unlock itself
// is returned as an error, the audit event as a BestEffort.
func (m *Monitor) UnlockAccount(ctx context.Context, adminID, userID uint, ip, userAgent string) (BestEffort, error) {
	if err := m.users.UnlockUser(ctx, userID); err != nil {
		return BestEffort{}, err
	}
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &userID,
		EventType: model.EventAccountUnlock,
		Severity:  model.SeverityInfo,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   map[string]interface{}{"unlockedBy": adminID},
	})
	return bestEffort("unlock_account", err), nil
}

type APIAccess struct {
	UserID    *uint
	IPAddress string
	UserAgent string
	Method    string
	Path      string
	Sensitive bool
}

func (m *Monitor) LogAPIAccess(ctx context.Context, access APIAccess) BestEffort {
	eventType := model.EventAPIAccess
	if access.Sensitive {
		eventType = model.EventSensitiveDataAccess
	}
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    access.UserID,
		EventType: eventType,
		Severity:  model.SeverityInfo,
		IPAddress: access.IPAddress,
		UserAgent: access.UserAgent,
		Details:   map[string]interface{}{"method": access.Method, "path": access.Path},
	})
	return bestEffort("log_api_access", err)
}

func (m *Monitor) LogAdminAction(ctx context.Context, adminID uint, ip, userAgent, action string, details map[string]interface{}) BestEffort {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["action"] = action
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    &adminID,
		EventType: model.EventAdminAction,
		Severity:  model.SeverityInfo,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   details,
	})
	return bestEffort("log_admin_action", err)
}

func (m *Monitor) LogSuspiciousActivity(ctx context.Context, userID *uint, ip, userAgent string, details map[string]interface{}) BestEffort {
	_, err := m.security.RecordEvent(ctx, EventInput{
		UserID:    userID,
		EventType: model.EventSuspiciousActivity,
		Severity:  model.SeverityWarning,
		IPAddress: ip,
		UserAgent: userAgent,
		Details:   details,
	})
	return bestEffort("log_suspicious_activity", err)
}

func NewMonitor(security *SecurityService, users UserStore) *Monitor {
	return &Monitor{
		security: security,
		users:    users,
		events:   security.eventRepo.WithPrimary(),
	}
}
