package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"beacon/config"
	"beacon/internal/domain/entity"
	"beacon/internal/infra/content"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderGuestToken carries the opaque guest session token for callers
	// without an account.
	HeaderGuestToken = "X-Guest-Token"

	contextKeyIdentity = "identity"
)

// AuthMiddleware resolves the caller identity from the request. A valid JWT
// access token yields a user identity; otherwise a guest token header yields
// a guest identity.
type AuthMiddleware struct {
	cfg *config.Config
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// Identify resolves the caller identity and stores it on the context. A
// request with neither credential passes through with a zero identity;
// handlers that need one use RequireIdentity instead.
func (m *AuthMiddleware) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader != "" {
			identity, err := m.identityFromJWT(authHeader)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
			}
			c.Set(contextKeyIdentity, identity)

			// Permission checks at the content platform run as the
			// original caller.
			ctx := content.WithForwardedAuth(c.Request().Context(), authHeader)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}

		if guestToken := c.Request().Header.Get(HeaderGuestToken); guestToken != "" {
			c.Set(contextKeyIdentity, entity.GuestIdentity(guestToken))
		}

		return next(c)
	}
}

// RequireIdentity rejects requests that carry no resolvable identity. It must
// be used after Identify.
func (m *AuthMiddleware) RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := GetIdentity(c); !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "request carries no user or guest identity"})
		}

		return next(c)
	}
}

// RequireUser rejects requests whose identity is not an authenticated user.
// It must be used after Identify.
func (m *AuthMiddleware) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := GetIdentity(c)
		if !ok || !identity.IsUser() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "requires an authenticated user"})
		}

		return next(c)
	}
}

// GetIdentity extracts the caller identity set by Identify.
func GetIdentity(c echo.Context) (entity.Identity, bool) {
	identity, ok := c.Get(contextKeyIdentity).(entity.Identity)
	if !ok || !identity.Valid() {
		return entity.Identity{}, false
	}

	return identity, true
}

func (m *AuthMiddleware) identityFromJWT(authHeader string) (entity.Identity, error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return entity.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token format, must be Bearer token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return []byte(m.cfg.SecretKey.Access), nil
	})
	if err != nil || !token.Valid {
		return entity.Identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.Identity{}, errInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return entity.Identity{}, errInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return entity.Identity{}, errInvalidToken
	}

	return entity.UserIdentity(userID), nil
}

var errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
