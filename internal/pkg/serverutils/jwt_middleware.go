// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"fmt"
	"time"

	"ai-textassist-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NewJwtMiddleware validates HS256 bearer tokens and stores user_id and role in ctx.Locals.
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return dto.NewUnauthorizedError("Missing token")
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return dto.NewUnauthorizedError("Invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return dto.NewUnauthorizedError("Invalid claims")
		}
		userId, ok := claims["user_id"].(string)
		if !ok || userId == "" {
			return dto.NewUnauthorizedError("Invalid claims")
		}

		ctx.Locals("user_id", userId)
		if role, ok := claims["role"].(string); ok {
			ctx.Locals("role", role)
		}
		return ctx.Next()
	}
}

// AdminOnly must run after the JWT middleware.
func AdminOnly(ctx *fiber.Ctx) error {
	role, _ := ctx.Locals("role").(string)
	if role != "admin" {
		return dto.NewForbiddenError("Admin access required")
	}
	return ctx.Next()
}

// GetUserId reads the authenticated user id placed by the JWT middleware.
func GetUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, dto.NewUnauthorizedError("Missing user")
	}
	id, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, dto.NewUnauthorizedError("Invalid user id")
	}
	return id, nil
}

// GenerateToken signs the access token issued on login.
func GenerateToken(secret string, userId uuid.UUID, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
