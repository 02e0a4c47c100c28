package security

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuthFailure_LocksAfterFiveAttempts(t *testing.T) {
	alice := &model.User{ID: 100, Username: "alice"}
	env := newTestEnv(t, nil, alice)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		outcome, result := env.monitor.LogAuthFailure(ctx, "alice", "192.0.2.10", "ua", "invalid_password")
		require.True(t, result.OK(), "attempt %d: %v", i, result.Err)
		assert.Equal(t, i, outcome.Attempts)
		assert.False(t, outcome.Locked)
		assert.False(t, alice.IsLocked)
		env.now = env.now.Add(time.Second)
	}

	outcome, result := env.monitor.LogAuthFailure(ctx, "alice", "192.0.2.10", "ua", "invalid_password")
	require.True(t, result.OK(), result.Err)
	assert.True(t, outcome.Locked)
	assert.True(t, alice.IsLocked)
	require.NotNil(t, alice.LockUntil)
	until := alice.LockUntil.Sub(env.now)
	assert.GreaterOrEqual(t, until, 29*time.Minute)
	assert.LessOrEqual(t, until, 31*time.Minute)

	assert.EqualValues(t, 5, env.countEvents(t, model.EventLoginFailure))
	assert.EqualValues(t, 1, env.countEvents(t, model.EventAccountLockout))
	assert.EqualValues(t, 1, env.countAlerts(t, AlertTypeAccountLockout))
	require.Len(t, env.notifier.alerts, 1)
	assert.Equal(t, AlertTypeAccountLockout, env.notifier.alerts[0].AlertType)
}

func TestLogAuthFailure_UnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	outcome, result := env.monitor.LogAuthFailure(ctx, "ghost", "192.0.2.11", "ua", "user_not_found")
	require.True(t, result.OK())
	assert.Nil(t, outcome.UserID)
	assert.Zero(t, outcome.Attempts)

	var event model.SecurityEvent
	require.NoError(t, env.db.First(&event).Error)
	assert.Equal(t, model.EventLoginFailure, event.EventType)
	assert.Equal(t, model.SeverityWarning, event.Severity)
	assert.Nil(t, event.UserID)
	assert.Equal(t, "ghost", event.Details["username"])
}

func TestLogAuthFailure_BruteForceThreshold(t *testing.T) {
	var accounts []*model.User
	for i := 0; i < 12; i++ {
		accounts = append(accounts, &model.User{ID: uint(200 + i), Username: fmt.Sprintf("user%d", i)})
	}
	env := newTestEnv(t, nil, accounts...)
	ctx := context.Background()
	ip := "203.0.113.50"

	for i := 0; i < 9; i++ {
		_, result := env.monitor.LogAuthFailure(ctx, accounts[i].Username, ip, "ua", "invalid_password")
		require.True(t, result.OK(), result.Err)
		env.now = env.now.Add(time.Minute)
	}
	assert.Zero(t, env.countEvents(t, model.EventMultipleFailedAttempts))

	_, result := env.monitor.LogAuthFailure(ctx, accounts[9].Username, ip, "ua", "invalid_password")
	require.True(t, result.OK(), result.Err)
	assert.EqualValues(t, 1, env.countEvents(t, model.EventMultipleFailedAttempts))
	assert.EqualValues(t, 1, env.countAlerts(t, AlertTypeBruteForceAttempt))

	// further failures in the same window are not reported again
	env.now = env.now.Add(time.Minute)
	_, result = env.monitor.LogAuthFailure(ctx, accounts[10].Username, ip, "ua", "invalid_password")
	require.True(t, result.OK(), result.Err)
	assert.EqualValues(t, 1, env.countEvents(t, model.EventMultipleFailedAttempts))

	var alert model.SecurityAlert
	require.NoError(t, env.db.Where("alert_type = ?", AlertTypeBruteForceAttempt).First(&alert).Error)
	assert.Nil(t, alert.UserID)
	assert.Equal(t, model.SeverityError, alert.Severity)

	// a different address is counted separately
	_, result = env.monitor.LogAuthFailure(ctx, accounts[11].Username, "203.0.113.51", "ua", "invalid_password")
	require.True(t, result.OK())
	assert.EqualValues(t, 1, env.countEvents(t, model.EventMultipleFailedAttempts))
}

func TestLogAuthFailure_BruteForceWindowExpires(t *testing.T) {
	var accounts []*model.User
	for i := 0; i < 10; i++ {
		accounts = append(accounts, &model.User{ID: uint(300 + i), Username: fmt.Sprintf("user%d", i)})
	}
	env := newTestEnv(t, nil, accounts...)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		env.monitor.LogAuthFailure(ctx, accounts[i].Username, "203.0.113.60", "ua", "invalid_password")
	}
	env.now = env.now.Add(params.BruteForceWindow + time.Minute)
	_, result := env.monitor.LogAuthFailure(ctx, accounts[9].Username, "203.0.113.60", "ua", "invalid_password")
	require.True(t, result.OK())
	assert.Zero(t, env.countEvents(t, model.EventMultipleFailedAttempts))
}

func TestLogAuthSuccess_ResetsAttemptsAndChecksLocation(t *testing.T) {
	bob := &model.User{ID: 400, Username: "bob", LoginAttempts: 3}
	env := newTestEnv(t, nil, bob)
	ctx := context.Background()

	eventID, result := env.monitor.LogAuthSuccess(ctx, bob.ID, "198.51.100.77", "ua")
	require.True(t, result.OK(), result.Err)
	require.NotZero(t, eventID)
	assert.Zero(t, bob.LoginAttempts)
	assert.Equal(t, "198.51.100.77", bob.LastLoginIP)
	assert.EqualValues(t, 1, env.countAlerts(t, AlertTypeNewLocationAccess))

	_, result = env.monitor.LogAuthSuccess(ctx, bob.ID, "198.51.100.77", "ua")
	require.True(t, result.OK(), result.Err)
	assert.EqualValues(t, 1, env.countAlerts(t, AlertTypeNewLocationAccess))
	assert.EqualValues(t, 2, env.countEvents(t, model.EventLoginSuccess))
}

func TestLogRegistration_FirstLoginAlert(t *testing.T) {
	env := newTestEnv(t, nil, &model.User{ID: 500, Username: "carol"})
	ctx := context.Background()

	_, result := env.monitor.LogRegistration(ctx, 500, "192.0.2.200", "ua")
	require.True(t, result.OK(), result.Err)
	assert.EqualValues(t, 1, env.countEvents(t, model.EventRegistration))
	assert.EqualValues(t, 1, env.countAlerts(t, AlertTypeNewLocationAccess))
}

func TestIsAccountLocked(t *testing.T) {
	until := testNow.Add(10 * time.Minute)
	dave := &model.User{ID: 600, Username: "dave", IsLocked: true, LockUntil: &until, LoginAttempts: 5}
	env := newTestEnv(t, nil, dave)
	ctx := context.Background()

	locked, err := env.monitor.IsAccountLocked(ctx, dave)
	require.NoError(t, err)
	assert.True(t, locked)

	env.now = until
	locked, err = env.monitor.IsAccountLocked(ctx, dave)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.False(t, dave.IsLocked)
	assert.Zero(t, dave.LoginAttempts)
}

func TestUnlockAccount(t *testing.T) {
	until := testNow.Add(time.Hour)
	erin := &model.User{ID: 700, Username: "erin", IsLocked: true, LockUntil: &until}
	env := newTestEnv(t, nil, erin)

	result, err := env.monitor.UnlockAccount(context.Background(), 1, erin.ID, "192.0.2.1", "ua")
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.False(t, erin.IsLocked)
	assert.EqualValues(t, 1, env.countEvents(t, model.EventAccountUnlock))
}

func TestLogAPIAccess(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	admin := uint(1)

	require.True(t, env.monitor.LogAPIAccess(ctx, APIAccess{UserID: &admin, Method: "GET", Path: "/api/admin/security/stats"}).OK())
	require.True(t, env.monitor.LogAPIAccess(ctx, APIAccess{UserID: &admin, Method: "GET", Path: "/api/admin/security/logs", Sensitive: true}).OK())
	assert.EqualValues(t, 1, env.countEvents(t, model.EventAPIAccess))
	assert.EqualValues(t, 1, env.countEvents(t, model.EventSensitiveDataAccess))
}

type failingEventRepository struct {
	EventRepository
	err error
}

func (r *failingEventRepository) Create(ctx context.Context, event *model.SecurityEvent) error {
	return r.err
}

func (r *failingEventRepository) WithPrimary() EventRepository {
	return r
}

func TestMonitor_EventStoreFailureDoesNotBlockOutcome(t *testing.T) {
	env := newTestEnv(t, nil)
	errStore := errors.New("security_events unavailable")
	driver := &model.User{ID: 300, Username: "driver", LoginAttempts: params.LockoutMaxAttempts - 1}
	users := newFakeUserStore(driver)

	svc := NewSecurityService(
		&failingEventRepository{EventRepository: NewEventRepository(env.db), err: errStore},
		NewAlertRepository(env.db),
		NewLocationRepository(env.db),
		nil,
		env.notifier,
	)
	svc.now = func() time.Time { return env.now }
	monitor := NewMonitor(svc, users)
	ctx := context.Background()

	outcome, result := monitor.LogAuthFailure(ctx, "driver", "192.0.2.50", "ua", "invalid_password")
	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, errStore)
	assert.Equal(t, params.LockoutMaxAttempts, outcome.Attempts)
	assert.True(t, outcome.Locked)
	require.NotNil(t, outcome.LockUntil)
	assert.True(t, driver.IsLocked)

	eventID, result := monitor.LogAuthSuccess(ctx, driver.ID, "192.0.2.50", "ua")
	assert.False(t, result.OK())
	assert.Zero(t, eventID)
	assert.Zero(t, driver.LoginAttempts)
	require.NotNil(t, driver.LastLoginAt)

	_, result = monitor.LogRegistration(ctx, driver.ID, "192.0.2.50", "ua")
	assert.False(t, result.OK())
	assert.EqualValues(t, 0, env.countEvents(t, model.EventLoginFailure))
}
