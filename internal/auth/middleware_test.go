package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-service/internal/api/http"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/observability"
)

func newMiddlewareApp(t *testing.T, tm *auth.TokenManager) *fiber.App {
	t.Helper()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	mw := auth.NewMiddleware(tm)
	app.Get("/protected", mw.Require(), func(c *fiber.Ctx) error {
		userID, _ := auth.UserIDFromContext(c)
		return c.JSON(fiber.Map{"success": true, "user_id": userID})
	})
	app.Get("/optional", mw.Optional(), func(c *fiber.Ctx) error {
		userID, _ := auth.UserIDFromContext(c)
		return c.JSON(fiber.Map{
			"success":       true,
			"authenticated": auth.IsAuthenticated(c),
			"user_id":       userID,
		})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, header, value string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestRequireRejectsMissingToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	status, body := doRequest(t, app, "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["hint"], "Authorization: Bearer")
	assert.Contains(t, body["hint"], auth.FallbackTokenHeader)
}

func TestRequireAcceptsBearerHeader(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	token, _, err := tm.Issue("user-7")
	require.NoError(t, err)

	status, body := doRequest(t, app, fiber.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-7", body["user_id"])
}

func TestRequireAcceptsFallbackHeader(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	token, _, err := tm.Issue("user-7")
	require.NoError(t, err)

	status, body := doRequest(t, app, auth.FallbackTokenHeader, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-7", body["user_id"])
}

func TestRequireDistinguishesExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Millisecond)
	app := newMiddlewareApp(t, tm)

	token, _, err := tm.Issue("user-7")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	status, body := doRequest(t, app, fiber.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_EXPIRED", body["code"])
}

func TestRequireRejectsMalformedToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	status, body := doRequest(t, app, fiber.HeaderAuthorization, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Malformed token", body["error"])
}

func TestRequireRejectsBadSignature(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	other := auth.NewTokenManager("other-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	token, _, err := other.Issue("user-7")
	require.NoError(t, err)

	status, body := doRequest(t, app, fiber.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body["error"])
}

func TestOptionalNeverRejects(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	app := newMiddlewareApp(t, tm)

	token, _, err := tm.Issue("user-7")
	require.NoError(t, err)

	cases := []struct {
		name          string
		header        string
		value         string
		authenticated bool
	}{
		{name: "no token", authenticated: false},
		{name: "invalid token", header: fiber.HeaderAuthorization, value: "Bearer garbage", authenticated: false},
		{name: "valid token", header: fiber.HeaderAuthorization, value: "Bearer " + token, authenticated: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/optional", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.authenticated, body["authenticated"])
		})
	}
}
