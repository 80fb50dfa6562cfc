package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is the caller as asserted by the bearer token.
type Identity struct {
	Email string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, RoleAdmin)
}

const RoleAdmin = "admin"

// AuthMiddleware extracts the caller from an optional bearer JWT signed with secret.
// Requests without an Authorization header continue anonymously; a malformed or
// invalid token is rejected.
func AuthMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return ctx.Next()
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			return unauthorized(ctx, "Invalid Authorization header format")
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return unauthorized(ctx, "Unauthorized: Invalid token")
		}

		identity := Identity{}
		identity.Email, _ = claims["email"].(string)
		identity.Role, _ = claims["role"].(string)
		ctx.Locals(identityKey, identity)

		return ctx.Next()
	}
}

// RequireRole admits only callers whose token carries role.
func RequireRole(role string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		identity, ok := IdentityFrom(ctx)
		if !ok {
			return unauthorized(ctx, "Missing Authorization header")
		}
		if !strings.EqualFold(identity.Role, role) {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Forbidden: You do not have permission",
			})
		}
		return ctx.Next()
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware, if any.
func IdentityFrom(ctx *fiber.Ctx) (Identity, bool) {
	identity, ok := ctx.Locals(identityKey).(Identity)
	return identity, ok
}

func unauthorized(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
