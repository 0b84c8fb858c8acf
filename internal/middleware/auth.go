// Package middleware holds the Echo middleware shared by all routes:
// bearer-token authentication, role gating, Redis rate limiting, Redis
// response caching and zap request logging.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/utils"
)

const actorKey = "actor"

// JWTAuth validates a Bearer access token and stores the caller as an
// authz.Actor in the context. Handlers read it with ActorFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			id, err := claims.UserID()
			if err != nil || !claims.Role.Valid() {
				return unauthorized(c, "invalid claims")
			}
			c.Set(actorKey, authz.Actor{ID: id, Role: claims.Role})
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": msg})
}

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(c echo.Context) (authz.Actor, bool) {
	a, ok := c.Get(actorKey).(authz.Actor)
	return a, ok
}

// RequireRole rejects callers whose token role is not one of roles. It must
// run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok || !allowed[a.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "authorization_error", "message": "forbidden"})
			}
			return next(c)
		}
	}
}

// userKey identifies the caller for rate limit and cache keys.
func userKey(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.ID, 10)
	}
	return "anon"
}
