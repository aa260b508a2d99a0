package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"multtv/internal/auth"
	"multtv/internal/config"
	"multtv/internal/db"
	"multtv/internal/library"
	"multtv/internal/session"
	"multtv/internal/util"
	"multtv/internal/video"
	"multtv/internal/webui"
)

const sessionCookieName = "session_token"

// App wires the store, session manager, library index and validator behind
// the HTTP surface.
type App struct {
	cfg      config.Config
	opts     Options
	store    *db.Store
	sessions *session.Manager
	indexer  *library.Indexer
	picker   *library.Picker
	probe    video.Prober
	logger   *slog.Logger
	proxy    http.Handler

	mu         sync.Mutex
	validating bool
}

func New(cfg config.Config, opts Options, store *db.Store, logger *slog.Logger) (*App, error) {
	limiter := auth.NewLoginLimiter()
	a := &App{
		cfg:      cfg,
		opts:     opts,
		store:    store,
		sessions: session.NewManager(store, limiter, cfg.SessionMaxAge()),
		indexer:  library.NewIndexer(cfg.VideoDir, cfg.CompleteDir(), config.StagingDirNames),
		picker:   library.NewPicker(rand.New(rand.NewSource(time.Now().UnixNano()))),
		probe:    video.NewFFProbe(time.Duration(cfg.ProbeTimeoutSec) * time.Second),
		logger:   logger,
	}
	proxy, err := a.newTransmissionProxy()
	if err != nil {
		return nil, err
	}
	a.proxy = proxy
	return a, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, opts Options) error {
	store, err := db.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	handlerLevel := new(slog.LevelVar)
	handlerLevel.Set(parseLogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel}))

	app, err := New(cfg, opts, store, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(opts.Bind, strconv.Itoa(opts.Port)),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler assembles the route table and middleware chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webui.Static()))))
	mux.HandleFunc("GET /{$}", a.handleIndex)

	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("POST /api/logout", a.handleLogout)
	mux.HandleFunc("GET /api/me", a.handleMe)

	mux.HandleFunc("GET /api/shows", a.handleShows)
	mux.HandleFunc("GET /api/get_random", a.handleGetRandom)
	mux.HandleFunc("GET /stream/{path...}", a.handleStream)
	mux.HandleFunc("POST /api/mark_watched", a.handleMarkWatched)
	mux.HandleFunc("POST /api/report", a.handleCreateReport)

	mux.HandleFunc("GET /api/admin/users", a.handleListUsers)
	mux.HandleFunc("POST /api/admin/users", a.handleCreateUser)
	mux.HandleFunc("DELETE /api/admin/users/{id}", a.handleDeleteUser)
	mux.HandleFunc("PUT /api/admin/users/{id}/password", a.handleChangePassword)
	mux.HandleFunc("GET /api/admin/stats", a.handleStats)
	mux.HandleFunc("DELETE /api/admin/history", a.handleResetHistory)
	mux.HandleFunc("GET /api/admin/browse", a.handleBrowse)
	mux.HandleFunc("GET /api/admin/videos", a.handleListVideos)
	mux.HandleFunc("DELETE /api/admin/videos/{path...}", a.handleDeleteVideo)
	mux.HandleFunc("POST /api/admin/play", a.handlePlay)
	mux.HandleFunc("GET /api/admin/reports", a.handleListReports)
	mux.HandleFunc("DELETE /api/admin/reports/{id}", a.handleDeleteReport)
	mux.HandleFunc("POST /api/admin/validate", a.handleStartValidation)
	mux.HandleFunc("GET /api/admin/validate", a.handleValidationResults)

	mux.HandleFunc("/transmission/", a.handleProxy)

	return a.recoverer(a.securityHeaders(a.requestLogger(mux)))
}

func (a *App) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (a *App) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("panic recovered", "panic", rec, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			"id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", remoteIP(r),
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	})
}

func remoteIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *App) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (a *App) requireAuth(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := a.sessions.Resolve(a.sessionToken(r))
	if err != nil {
		a.writeAuthError(w, err)
		return auth.Principal{}, false
	}
	return p, true
}

func (a *App) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := a.sessions.ResolveAdmin(a.sessionToken(r))
	if err != nil {
		a.writeAuthError(w, err)
		return auth.Principal{}, false
	}
	return p, true
}

func (a *App) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrRateLimited):
		a.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrUnauthenticated):
		a.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrForbidden):
		a.writeError(w, http.StatusForbidden, err.Error())
	default:
		a.logger.Error("auth failure", "err", err)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *App) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.sessions.MaxAge().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *App) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func decodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (a *App) resolveLibraryPath(rel string) (string, error) {
	return util.SafeJoin(a.cfg.VideoDir, rel)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *App) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]any{"error": message})
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, err := webui.IndexHTML()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}
