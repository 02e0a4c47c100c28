package users

import (
	"context"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return NewUserService(NewUserRepository(db))
}

func TestCreateUser(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserOptions{Username: "tuner", Email: "tuner@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret!", user.Password)
	assert.NoError(t, s.VerifyPassword(user, "s3cret!"))
	assert.ErrorIs(t, s.VerifyPassword(user, "wrong"), ErrInvalidCredentials)

	_, err = s.CreateUser(ctx, CreateUserOptions{Username: "tuner", Email: "other@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = s.CreateUser(ctx, CreateUserOptions{Username: "other", Email: "tuner@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, ErrEmailRegistered)

	byEmail, err := s.GetUserByUsernameOrEmail(ctx, "tuner@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := s.FindUserByLogin(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.GetUserByID(ctx, user.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLockoutLifecycle(t *testing.T) {
	s := newTestUserService(t)
	ctx := context.Background()
	user, err := s.CreateUser(ctx, CreateUserOptions{Username: "locked", Email: "locked@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		attempts, err := s.IncrementLoginAttempts(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
	}

	until := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	require.NoError(t, s.LockUser(ctx, user.ID, "Too many failed login attempts", until))
	stored, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked)
	require.NotNil(t, stored.LockUntil)
	assert.True(t, stored.LockUntil.Equal(until))
	assert.True(t, stored.LockActive(until.Add(-time.Minute)))

	require.NoError(t, s.UnlockUser(ctx, user.ID))
	stored, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked)
	assert.Nil(t, stored.LockUntil)
	assert.Zero(t, stored.LoginAttempts)

	_, err = s.IncrementLoginAttempts(ctx, user.ID)
	require.NoError(t, err)
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.RecordLogin(ctx, user.ID, "192.0.2.4", at))
	stored, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.Equal(t, "192.0.2.4", stored.LastLoginIP)

	assert.ErrorIs(t, s.UnlockUser(ctx, user.ID+1), ErrUserNotFound)
	_, err = s.IncrementLoginAttempts(ctx, user.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
