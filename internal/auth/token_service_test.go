package auth

import (
	"context"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/store"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) *TokenService {
	storage := store.NewMemoryStorage(time.Minute)
	t.Cleanup(func() { storage.Close() })
	return NewTokenService("test-secret", time.Hour, storage)
}

func TestTokenService_IssueVerify(t *testing.T) {
	s := newTestTokenService(t)
	ctx := context.Background()

	token, issued, err := s.Issue(&model.User{ID: 12, Username: "admin", Role: model.RoleAdmin})
	require.NoError(t, err)

	claims, err := s.Verify(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 12, claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, issued.ID, claims.ID)

	_, err = s.Verify(ctx, token+"x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewTokenService("other-secret", time.Hour, store.NewMemoryStorage(time.Minute))
	_, err = other.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_Expired(t *testing.T) {
	s := newTestTokenService(t)
	token, _, err := s.Issue(&model.User{ID: 1, Username: "u", Role: model.RoleUser})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_Revoke(t *testing.T) {
	s := newTestTokenService(t)
	ctx := context.Background()
	token, claims, err := s.Issue(&model.User{ID: 1, Username: "u", Role: model.RoleUser})
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, claims))
	_, err = s.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
