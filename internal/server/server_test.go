package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"multtv/internal/auth"
	"multtv/internal/config"
	"multtv/internal/db"
)

type stubProber struct {
	payload []byte
}

func (p *stubProber) Probe(ctx context.Context, path string) ([]byte, error) {
	return p.payload, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	videoDir := t.TempDir()
	showDir := filepath.Join(videoDir, "complete", "Show A")
	require.NoError(t, os.MkdirAll(showDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(showDir, "ep1.mp4"), []byte("fake mp4 payload"), 0o644))

	store, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, u := range []struct {
		name, pass string
		role       auth.Role
	}{
		{"viewer", "viewer-pass", auth.RoleUser},
		{"boss", "boss-pass", auth.RoleAdmin},
	} {
		hash, err := auth.HashPassword(u.pass)
		require.NoError(t, err)
		_, err = store.CreateUser(u.name, hash, u.role)
		require.NoError(t, err)
	}

	cfg := config.Default(t.TempDir())
	cfg.VideoDir = videoDir
	cfg.ProbeTimeoutSec = 5

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := New(cfg, Options{Bind: "127.0.0.1", Port: 8080, Version: "test"}, store, logger)
	require.NoError(t, err)
	return app
}

func doLogin(t *testing.T, h http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func loginCookie(t *testing.T, h http.Handler, username, password string) *http.Cookie {
	t.Helper()
	rec := doLogin(t, h, username, password)
	require.Equal(t, http.StatusOK, rec.Code)
	return sessionCookie(t, rec)
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	rec := doLogin(t, h, "viewer", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doLogin(t, h, "viewer", "viewer-pass")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)

	var principal auth.Principal
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&principal))
	require.Equal(t, "viewer", principal.Username)
	require.Equal(t, auth.RoleUser, principal.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	for i := 0; i < 5; i++ {
		rec := doLogin(t, h, "viewer", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := doLogin(t, h, "viewer", "viewer-pass")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStreamRejectsTraversal(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	cookie := loginCookie(t, h, "viewer", "viewer-pass")

	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil)
	req.AddCookie(cookie)
	req.SetPathValue("path", "../../etc/passwd")
	rec := httptest.NewRecorder()
	app.handleStream(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "access denied")
}

func TestStreamServesLibraryFile(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	cookie := loginCookie(t, h, "viewer", "viewer-pass")

	req := httptest.NewRequest(http.MethodGet, "/stream/complete/Show%20A/ep1.mp4", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "fake mp4 payload", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/stream/complete/Show%20A/ep1.mp4", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	viewer := loginCookie(t, h, "viewer", "viewer-pass")
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(viewer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	boss := loginCookie(t, h, "boss", "boss-pass")
	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(boss)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []db.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	require.Contains(t, names, "viewer")
	require.Contains(t, names, "boss")
}

func TestGetRandomAndMarkWatched(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	cookie := loginCookie(t, h, "viewer", "viewer-pass")

	req := httptest.NewRequest(http.MethodGet, "/api/get_random", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var pick pickResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pick))
	require.Equal(t, "ep1.mp4", pick.Title)
	require.Equal(t, "complete/Show A/ep1.mp4", pick.FilePath)
	require.Equal(t, "Show A", pick.Show)
	require.Equal(t, "/stream/complete/Show%20A/ep1.mp4", pick.URL)

	body, _ := json.Marshal(map[string]string{"file_path": pick.FilePath})
	req = httptest.NewRequest(http.MethodPost, "/api/mark_watched", bytes.NewReader(body))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestValidationSweepEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.probe = &stubProber{payload: []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264"},
			{"codec_type": "audio", "codec_name": "aac"}
		],
		"format": {"duration": "1320.5"}
	}`)}
	h := app.Handler()
	boss := loginCookie(t, h, "boss", "boss-pass")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/validate", nil)
	req.AddCookie(boss)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	type resultsBody struct {
		Running bool         `json:"running"`
		Results []db.Verdict `json:"results"`
	}
	var last resultsBody
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/validate", nil)
		req.AddCookie(boss)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		last = resultsBody{}
		if err := json.NewDecoder(rec.Body).Decode(&last); err != nil {
			return false
		}
		return !last.Running && len(last.Results) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.True(t, last.Results[0].OK)
	require.Equal(t, "complete/Show A/ep1.mp4", last.Results[0].FilePath)
	require.Equal(t, "h264", last.Results[0].VideoCodec)
}
