package auth

import (
	"context"
	"errors"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/store"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const revokedTokenKeyPrefix = "revoked:"

type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

type revokedToken struct {
	UserID    uint  `redis:"user_id"`
	RevokedAt int64 `redis:"revoked_at"`
}

// TokenService issues HS256 access tokens and keeps a revocation list for
// tokens that were logged out before they expired.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	revoked   store.Store[revokedToken]
	now       func() time.Time
}

func (s *TokenService) Issue(user *model.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *TokenService) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	_, err = s.revoked.Get(ctx, claims.ID)
	if err == nil {
		return nil, ErrTokenRevoked
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &claims, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Set(ctx, claims.ID, revokedToken{
		UserID:    claims.UserID,
		RevokedAt: s.now().Unix(),
	}, ttl)
}

func NewTokenService(secret string, expiresIn time.Duration, storage store.Storage) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		revoked:   store.New[revokedToken](storage, revokedTokenKeyPrefix),
		now:       time.Now,
	}
}
