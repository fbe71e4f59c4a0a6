package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwtPkg "CXRaide/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, cfg Config) (*fiber.App, Middleware) {
	t.Helper()
	log, _ := test.NewNullLogger()
	m := New(log, cfg)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewLoggingMiddleware())
	return app, m
}

func TestRequestIDIsAssignedAndEchoed(t *testing.T) {
	app, m := newTestApp(t, Config{})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
	assert.Equal(t, string(body), resp.Header.Get(RequestIDKey))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "abc-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "abc-123", string(body))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, strings.Repeat("x", 200))
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
}

func TestTokenMiddleware(t *testing.T) {
	t.Setenv(jwtPkg.AccessTokenSecret, "middleware-secret")

	app, m := newTestApp(t, Config{})
	app.Get("/private", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		user, err := jwtPkg.GetUserLoginData(c)
		if err != nil {
			return err
		}
		return c.SendString(user.Username)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, _, err := jwtPkg.Sign(map[string]interface{}{"id": "u1", "username": "admin"}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "admin", string(body))
}

func TestRateLimiter(t *testing.T) {
	app, m := newTestApp(t, Config{RateLimit: 0.001, RateBurst: 2})
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestSanitizeRequestBody(t *testing.T) {
	out := sanitizeRequestBody("/api/v1/auth/login", fiber.MIMEApplicationJSON, []byte(`{"username":"admin","password":"hunter2"}`))
	assert.Contains(t, out, `"username":"admin"`)
	assert.NotContains(t, out, "hunter2")

	assert.Equal(t, "[multipart body]", sanitizeRequestBody("/api/v1/predict", fiber.MIMEMultipartForm+"; boundary=x", []byte("...")))
	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody("/", fiber.MIMETextPlain, []byte("hello")))
}
