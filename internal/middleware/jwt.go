package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT tokens taken from the
// Authorization header or, as a fallback, the session cookie.
func JWTProtected(secret, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" && cookieName != "" {
			tokenString = strings.TrimSpace(c.Cookies(cookieName))
		}
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}
		c.Locals("user_id", *userID)
		if role := extractRoleFromClaims(claims); role != "" {
			c.Locals("user_role", models.NormalizeRole(role))
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authorization := c.Get("Authorization")
	if authorization == "" {
		return ""
	}

	const bearer = "bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
		return ""
	}
	return strings.TrimSpace(authorization[len(bearer):])
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}
	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractRoleFromClaims(claims jwt.MapClaims) string {
	if value, ok := claims["role"]; ok {
		if role, ok := value.(string); ok {
			return strings.ToLower(strings.TrimSpace(role))
		}
	}
	return ""
}
