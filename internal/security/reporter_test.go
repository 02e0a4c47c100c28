package security

import (
	"context"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvent(t *testing.T, env *testEnv, eventType model.EventType, severity model.Severity, age time.Duration, userID *uint) {
	t.Helper()
	require.NoError(t, env.db.Create(&model.SecurityEvent{
		UserID:    userID,
		EventType: eventType,
		Severity:  severity,
		IPAddress: "192.0.2.1",
		CreatedAt: env.now.Add(-age),
	}).Error)
}

func seedAlert(t *testing.T, env *testEnv, severity model.Severity, age time.Duration, resolved bool) *model.SecurityAlert {
	t.Helper()
	alert := &model.SecurityAlert{
		EventID:   1,
		AlertType: "test",
		Severity:  severity,
		Message:   "seeded " + string(severity),
		CreatedAt: env.now.Add(-age),
	}
	if resolved {
		resolvedBy := uint(1)
		resolvedAt := env.now.Add(-age)
		alert.Resolved = true
		alert.ResolvedBy = &resolvedBy
		alert.ResolvedAt = &resolvedAt
	}
	require.NoError(t, env.db.Create(alert).Error)
	return alert
}

func TestGetSecurityStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, time.Hour, nil)
	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, 2*time.Hour, nil)
	seedEvent(t, env, model.EventLoginSuccess, model.SeverityInfo, time.Hour, nil)
	seedEvent(t, env, model.EventAccountLockout, model.SeverityError, 48*time.Hour, nil)

	seedAlert(t, env, model.SeverityError, time.Hour, false)
	seedAlert(t, env, model.SeverityWarning, 72*time.Hour, false)
	seedAlert(t, env, model.SeverityWarning, 2*time.Hour, true)

	stats, err := env.reporter.GetSecurityStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalEvents)
	assert.Equal(t, map[model.EventType]int64{
		model.EventLoginFailure:   2,
		model.EventLoginSuccess:   1,
		model.EventAccountLockout: 1,
	}, stats.EventsByType)
	assert.Equal(t, map[model.Severity]int64{
		model.SeverityWarning: 2,
		model.SeverityInfo:    1,
		model.SeverityError:   1,
	}, stats.EventsBySeverity)
	assert.EqualValues(t, 2, stats.RecentAlerts)
	assert.EqualValues(t, 2, stats.UnresolvedAlerts)
}

func TestGetSecurityLogStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, time.Hour, nil)
	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, 30*time.Hour, nil)
	seedEvent(t, env, model.EventSuspiciousActivity, model.SeverityWarning, 3*time.Hour, nil)
	seedEvent(t, env, model.EventAPIAccess, model.SeverityInfo, time.Hour, nil)
	seedEvent(t, env, model.EventSensitiveDataAccess, model.SeverityInfo, time.Hour, nil)
	seedEvent(t, env, model.EventAPIAccess, model.SeverityInfo, 25*time.Hour, nil)
	seedEvent(t, env, model.EventLogout, model.SeverityInfo, 10*24*time.Hour, nil)

	stats, err := env.reporter.GetSecurityLogStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.WindowDays)
	assert.EqualValues(t, 6, stats.TotalEvents)
	assert.EqualValues(t, 2, stats.EventsByType[model.EventLoginFailure])
	assert.EqualValues(t, 0, stats.EventsByType[model.EventLogout])
	assert.EqualValues(t, 3, stats.EventsBySeverity[model.SeverityInfo])
	assert.EqualValues(t, 1, stats.RecentFailedLogins)
	assert.EqualValues(t, 1, stats.RecentSuspiciousActivities)
	assert.EqualValues(t, 2, stats.RecentAPIAccess)

	stats, err = env.reporter.GetSecurityLogStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.WindowDays)
	assert.EqualValues(t, 7, stats.TotalEvents)
}

func TestGetSecurityLogs(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice, bob := uint(1), uint(2)

	seedEvent(t, env, model.EventAPIAccess, model.SeverityInfo, 5*time.Hour, &alice)
	seedEvent(t, env, model.EventSensitiveDataAccess, model.SeverityInfo, 4*time.Hour, &alice)
	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, 3*time.Hour, &bob)
	seedEvent(t, env, model.EventLoginFailure, model.SeverityWarning, 2*time.Hour, &alice)
	seedEvent(t, env, model.EventAccountLockout, model.SeverityError, time.Hour, &alice)

	page, err := env.reporter.GetSecurityLogs(ctx, LogQuery{EventType: model.EventAPIAccess})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, model.EventSensitiveDataAccess, page.Logs[0].EventType)

	page, err = env.reporter.GetSecurityLogs(ctx, LogQuery{UserID: &alice, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, model.EventAccountLockout, page.Logs[0].EventType)
	assert.Equal(t, model.EventLoginFailure, page.Logs[1].EventType)

	page, err = env.reporter.GetSecurityLogs(ctx, LogQuery{UserID: &alice, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, model.EventAPIAccess, page.Logs[1].EventType)

	from := env.now.Add(-150 * time.Minute)
	to := env.now.Add(-30 * time.Minute)
	page, err = env.reporter.GetSecurityLogs(ctx, LogQuery{Severity: model.SeverityWarning, From: &from, To: &to})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = env.reporter.GetSecurityLogs(ctx, LogQuery{EventType: model.EventPasswordChange})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Logs)

	_, err = env.reporter.GetSecurityLogs(ctx, LogQuery{EventType: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidEventType)
}

func TestResolveSecurityAlert(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alert := seedAlert(t, env, model.SeverityError, time.Hour, false)

	ok, err := env.reporter.ResolveSecurityAlert(ctx, alert.ID, 9, "false positive")
	require.NoError(t, err)
	assert.True(t, ok)

	var stored model.SecurityAlert
	require.NoError(t, env.db.First(&stored, alert.ID).Error)
	assert.True(t, stored.Resolved)
	require.NotNil(t, stored.ResolvedBy)
	assert.EqualValues(t, 9, *stored.ResolvedBy)
	require.NotNil(t, stored.ResolutionNotes)
	assert.Equal(t, "false positive", *stored.ResolutionNotes)
	require.NotNil(t, stored.ResolvedAt)
	assert.True(t, stored.ResolvedAt.Equal(env.now))

	ok, err = env.reporter.ResolveSecurityAlert(ctx, alert.ID+1000, 9, "")
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.False(t, ok)
}

func TestGetUnresolvedAlerts_Ordering(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := model.User{ID: 77, Username: "frank", Email: "frank@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&user).Error)
	eventID, err := env.security.RecordEvent(ctx, EventInput{
		UserID:    &user.ID,
		EventType: model.EventAccountLockout,
		Severity:  model.SeverityError,
		IPAddress: "192.0.2.5",
	})
	require.NoError(t, err)

	oldWarning := seedAlert(t, env, model.SeverityWarning, 3*time.Hour, false)
	newWarning := seedAlert(t, env, model.SeverityWarning, time.Hour, false)
	critical := seedAlert(t, env, model.SeverityCritical, 5*time.Hour, false)
	info := seedAlert(t, env, model.SeverityInfo, time.Minute, false)
	seedAlert(t, env, model.SeverityCritical, time.Minute, true)
	linked, err := env.security.CreateAlert(ctx, AlertInput{
		EventID:   eventID,
		UserID:    &user.ID,
		AlertType: AlertTypeAccountLockout,
		Severity:  model.SeverityError,
		Message:   "locked",
	})
	require.NoError(t, err)

	alerts, err := env.reporter.GetUnresolvedAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 5)
	var ids []uint64
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []uint64{critical.ID, linked.ID, newWarning.ID, oldWarning.ID, info.ID}, ids)

	require.NotNil(t, alerts[1].Username)
	assert.Equal(t, "frank", *alerts[1].Username)
	require.NotNil(t, alerts[1].EventType)
	assert.Equal(t, string(model.EventAccountLockout), *alerts[1].EventType)
	assert.Nil(t, alerts[0].Username)

	alerts, err = env.reporter.GetUnresolvedAlerts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}
