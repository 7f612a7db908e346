package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessSecret = "test_access_secret_key_very_long_for_testing"

func newAuthFixture() *AuthMiddleware {
	cfg := &config.Config{}
	cfg.SecretKey.Access = testAccessSecret

	return NewAuthMiddleware(cfg)
}

func signTestToken(t *testing.T, secret string, sub string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func runIdentify(auth *AuthMiddleware, configure func(*http.Request)) (echo.Context, *httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	configure(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := auth.Identify(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	return c, rec, handler(c)
}

func TestAuthMiddleware_Identify_ValidJWTYieldsUser(t *testing.T) {
	auth := newAuthFixture()
	signed := signTestToken(t, testAccessSecret, "42", time.Now().Add(time.Hour))

	c, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	identity, ok := GetIdentity(c)
	require.True(t, ok)
	assert.True(t, identity.Equal(entity.UserIdentity(42)))
}

func TestAuthMiddleware_Identify_GuestHeaderYieldsGuest(t *testing.T) {
	auth := newAuthFixture()

	c, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set(HeaderGuestToken, "guest-session-1")
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	identity, ok := GetIdentity(c)
	require.True(t, ok)
	assert.True(t, identity.Equal(entity.GuestIdentity("guest-session-1")))
}

func TestAuthMiddleware_Identify_NoCredentialsPassesAnonymously(t *testing.T) {
	auth := newAuthFixture()

	c, rec, err := runIdentify(auth, func(*http.Request) {})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := GetIdentity(c)
	assert.False(t, ok)
}

func TestAuthMiddleware_Identify_RejectsExpiredToken(t *testing.T) {
	auth := newAuthFixture()
	signed := signTestToken(t, testAccessSecret, "42", time.Now().Add(-time.Hour))

	_, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Identify_RejectsWrongSecret(t *testing.T) {
	auth := newAuthFixture()
	signed := signTestToken(t, "some_other_secret_entirely_for_testing", "42", time.Now().Add(time.Hour))

	_, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Identify_RejectsNonBearerHeader(t *testing.T) {
	auth := newAuthFixture()

	_, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Identify_RejectsNonNumericSubject(t *testing.T) {
	auth := newAuthFixture()
	signed := signTestToken(t, testAccessSecret, "not-a-number", time.Now().Add(time.Hour))

	_, rec, err := runIdentify(auth, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RequireIdentity_BlocksAnonymous(t *testing.T) {
	auth := newAuthFixture()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := auth.RequireIdentity(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RequireUser_BlocksGuests(t *testing.T) {
	auth := newAuthFixture()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderGuestToken, "guest-session-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := auth.Identify(auth.RequireUser(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}))

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware_RequireUser_AdmitsUsers(t *testing.T) {
	auth := newAuthFixture()
	signed := signTestToken(t, testAccessSecret, strconv.FormatInt(7, 10), time.Now().Add(time.Hour))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := auth.Identify(auth.RequireUser(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}))

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
