package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgard/authgate/internal/domain/session"
)

func newTestApp(t *testing.T) (*fiber.App, *serviceFixture) {
	t.Helper()

	f := newServiceFixture(t, 5)
	sessionAuth := NewSessionAuthService(f.users, f.sessions, f.tokens)
	handler := NewHandler(f.service, sessionAuth, f.sessions)
	authRequired := Middleware(f.tokens)

	app := fiber.New()
	app.Post("/auth/login", handler.Login)
	app.Get("/auth/me", authRequired, handler.Me)
	app.Post("/auth/logout", authRequired, handler.Logout)
	app.Post("/auth/logout/all", authRequired, handler.GlobalLogout)
	app.Post("/auth/session/login", handler.SessionLogin)
	app.Post("/auth/session/refresh", handler.SessionRefresh)
	app.Post("/auth/session/delete", handler.SessionDelete)
	app.Get("/sessions", authRequired, handler.ListSessions)
	app.Get("/admin", authRequired, RequireRoot(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	return app, f
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestHandler_Login(t *testing.T) {
	t.Run("valid credentials return 201 with token", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByLogin", "alice").Return(u, nil)

		status, body := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "pw"}, "")

		assert.Equal(t, fiber.StatusCreated, status)
		assert.NotEmpty(t, body["accessToken"])
		assert.NotEmpty(t, body["sessionId"])
		assert.Equal(t, false, body["isRoot"])
	})

	t.Run("wrong password returns 401 invalid credentials", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByLogin", "alice").Return(u, nil)

		status, body := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "nope"}, "")

		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(body))
	})

	t.Run("throttled login returns the brute force code", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByLogin", "alice").Return(u, nil)

		for i := 0; i < 5; i++ {
			postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "nope"}, "")
		}

		status, body := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "pw"}, "")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "BRUTE_FORCE_BLOCKED", errorCode(body))
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("missing header gets token absent", func(t *testing.T) {
		app, _ := newTestApp(t)

		status, body := getJSON(t, app, "/auth/me", "")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "TOKEN_ABSENT", errorCode(body))
	})

	t.Run("garbage token gets session expired", func(t *testing.T) {
		app, _ := newTestApp(t)

		status, body := getJSON(t, app, "/auth/me", "garbage")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "SESSION_EXPIRED", errorCode(body))
	})

	t.Run("valid token resolves the current user", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByLogin", "alice").Return(u, nil)
		f.users.On("FindByID", uint(1)).Return(u, nil)

		_, login := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "pw"}, "")
		token := login["accessToken"].(string)

		status, body := getJSON(t, app, "/auth/me", token)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "alice", body["login"])
	})

	t.Run("non root caller is rejected by the root gate", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByLogin", "alice").Return(u, nil)
		f.users.On("FindByID", uint(1)).Return(u, nil)

		_, login := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "pw"}, "")
		token := login["accessToken"].(string)

		status, body := getJSON(t, app, "/admin", token)
		assert.Equal(t, fiber.StatusForbidden, status)
		assert.Equal(t, "NOT_AUTHORIZED", errorCode(body))
	})

	t.Run("root caller passes the root gate", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "root", "pw")
		u.IsRoot = true
		f.users.On("FindByLogin", "root").Return(u, nil)
		f.users.On("FindByID", uint(1)).Return(u, nil)

		_, login := postJSON(t, app, "/auth/login", LoginRequest{Login: "root", Password: "pw"}, "")
		token := login["accessToken"].(string)

		status, _ := getJSON(t, app, "/admin", token)
		assert.Equal(t, fiber.StatusOK, status)
	})
}

func TestHandler_Logout(t *testing.T) {
	app, f := newTestApp(t)
	u := testUser(t, 1, "alice", "pw")
	f.users.On("FindByLogin", "alice").Return(u, nil)
	f.users.On("FindByID", uint(1)).Return(u, nil)

	_, login := postJSON(t, app, "/auth/login", LoginRequest{Login: "alice", Password: "pw"}, "")
	token := login["accessToken"].(string)

	status, body := postJSON(t, app, "/auth/logout", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	// The token is dead and so is its session.
	status, body = getJSON(t, app, "/auth/me", token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "SESSION_EXPIRED", errorCode(body))
}

func TestHandler_SessionEndpoints(t *testing.T) {
	ctx := t.Context()

	t.Run("session login issues a new token for a live session", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")
		f.users.On("FindByID", uint(1)).Return(u, nil)

		sid, err := f.sessions.Create(ctx, u.ID, u.RoleNames(), session.DeviceInfo{DeviceID: "d"})
		require.NoError(t, err)

		status, body := postJSON(t, app, "/auth/session/login", SessionRequest{SessionID: sid}, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.NotEmpty(t, body["accessToken"])
		assert.Equal(t, sid, body["sessionId"])
	})

	t.Run("session login with unknown id expires", func(t *testing.T) {
		app, _ := newTestApp(t)

		status, body := postJSON(t, app, "/auth/session/login", SessionRequest{SessionID: "missing"}, "")
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "SESSION_EXPIRED", errorCode(body))
	})

	t.Run("session refresh succeeds for a live session", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")

		sid, err := f.sessions.Create(ctx, u.ID, u.RoleNames(), session.DeviceInfo{DeviceID: "d"})
		require.NoError(t, err)

		status, body := postJSON(t, app, "/auth/session/refresh", SessionRequest{SessionID: sid}, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])
	})

	t.Run("session delete removes the session", func(t *testing.T) {
		app, f := newTestApp(t)
		u := testUser(t, 1, "alice", "pw")

		sid, err := f.sessions.Create(ctx, u.ID, u.RoleNames(), session.DeviceInfo{DeviceID: "d"})
		require.NoError(t, err)

		status, body := postJSON(t, app, "/auth/session/delete", SessionRequest{SessionID: sid}, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])

		_, err = f.sessions.Get(ctx, sid)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}
