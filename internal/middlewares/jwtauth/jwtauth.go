package jwtauth

import (
	"context"
	"errors"
	"strings"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/auth"
	"github.com/gofiber/fiber/v2"
)

const claimsKey = "jwtauth.claims"

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

func bearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// New rejects requests without a valid bearer token and stores the verified
// claims on the context.
func New(verifier TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := bearerToken(ctx)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing access token")
		}
		claims, err := verifier.Verify(ctx.UserContext(), token)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return fiber.NewError(fiber.StatusUnauthorized, "access token expired")
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
			return fiber.NewError(fiber.StatusUnauthorized, "invalid access token")
		case err != nil:
			return err
		}
		ctx.Locals(claimsKey, claims)
		return ctx.Next()
	}
}

func RequireRole(role string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		claims := GetClaims(ctx)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing access token")
		}
		if claims.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
		}
		return ctx.Next()
	}
}

func GetClaims(ctx *fiber.Ctx) *auth.Claims {
	claims, _ := ctx.Locals(claimsKey).(*auth.Claims)
	return claims
}
