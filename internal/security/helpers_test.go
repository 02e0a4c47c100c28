package security

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/geo"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))
	return db
}

type fakeLocator map[string]geo.Location

func (f fakeLocator) Locate(ctx context.Context, ip string) (geo.Location, error) {
	if loc, ok := f[ip]; ok {
		return loc, nil
	}
	return geo.Location{}, geo.ErrLookupFailed
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*model.SecurityAlert
}

func (n *fakeNotifier) NotifyAlert(ctx context.Context, alert *model.SecurityAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*model.User)}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

func (s *fakeUserStore) byID(id uint) *model.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *fakeUserStore) FindUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.users[login], nil
}

func (s *fakeUserStore) IncrementLoginAttempts(ctx context.Context, userID uint) (int, error) {
	u := s.byID(userID)
	u.LoginAttempts++
	return u.LoginAttempts, nil
}

func (s *fakeUserStore) LockUser(ctx context.Context, userID uint, reason string, until time.Time) error {
	u := s.byID(userID)
	u.IsLocked = true
	u.LockReason = reason
	u.LockUntil = &until
	return nil
}

func (s *fakeUserStore) UnlockUser(ctx context.Context, userID uint) error {
	u := s.byID(userID)
	u.IsLocked = false
	u.LockReason = ""
	u.LockUntil = nil
	u.LoginAttempts = 0
	return nil
}

func (s *fakeUserStore) RecordLogin(ctx context.Context, userID uint, ip string, at time.Time) error {
	u := s.byID(userID)
	u.LastLoginIP = ip
	u.LastLoginAt = &at
	u.LoginAttempts = 0
	return nil
}

type testEnv struct {
	db       *gorm.DB
	now      time.Time
	security *SecurityService
	monitor  *Monitor
	reporter *Reporter
	sweeper  *RetentionSweeper
	users    *fakeUserStore
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, locator geo.Locator, users ...*model.User) *testEnv {
	t.Helper()
	env := &testEnv{
		db:       newTestDB(t),
		now:      testNow,
		users:    newFakeUserStore(users...),
		notifier: &fakeNotifier{},
	}
	clock := func() time.Time { return env.now }

	eventRepo := NewEventRepository(env.db)
	alertRepo := NewAlertRepository(env.db)
	env.security = NewSecurityService(eventRepo, alertRepo, NewLocationRepository(env.db), locator, env.notifier)
	env.security.now = clock
	env.monitor = NewMonitor(env.security, env.users)
	env.reporter = NewReporter(eventRepo, alertRepo)
	env.reporter.now = clock
	env.sweeper = NewRetentionSweeper(eventRepo, alertRepo)
	env.sweeper.now = clock
	return env
}

func (env *testEnv) countEvents(t *testing.T, eventType model.EventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&model.SecurityEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (env *testEnv) countAlerts(t *testing.T, alertType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&model.SecurityAlert{}).Where("alert_type = ?", alertType).Count(&n).Error)
	return n
}
