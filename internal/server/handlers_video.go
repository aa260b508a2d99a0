package server

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multtv/internal/library"
	"multtv/internal/util"
)

// recencyWindow is how long a watched file is soft-excluded from selection.
const recencyWindow = 10 * 24 * time.Hour

func (a *App) handleShows(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAuth(w, r); !ok {
		return
	}
	shows, err := a.indexer.Shows()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list shows")
		return
	}
	a.writeJSON(w, http.StatusOK, shows)
}

func (a *App) handleGetRandom(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAuth(w, r); !ok {
		return
	}
	q := r.URL.Query()
	hint := library.Hint{
		Show:        q.Get("show"),
		CurrentPath: util.NormalizeRelPath(q.Get("current_path")),
		SameFolder:  q.Get("same_folder") == "true" || q.Get("same_folder") == "1",
	}

	blocked, err := a.store.BlockedPaths()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to read blocked set")
		return
	}
	files, err := a.indexer.Scan(blocked)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to scan library")
		return
	}
	if len(files) == 0 {
		a.writeJSON(w, http.StatusOK, map[string]any{"error": "library is empty"})
		return
	}
	recent, err := a.store.RecentlyWatched(time.Now().Add(-recencyWindow))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	shows, err := a.indexer.Shows()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list shows")
		return
	}

	chosen := a.picker.Pick(hint, files, recent, shows, a.indexer.ShowName)
	if chosen == nil {
		a.writeJSON(w, http.StatusOK, map[string]any{"error": "library is empty"})
		return
	}
	a.writeJSON(w, http.StatusOK, pickResponse{
		Title:    filepath.Base(chosen.Abs),
		URL:      "/stream/" + escapeStreamPath(chosen.Rel),
		FilePath: chosen.Rel,
		Show:     chosen.Show,
	})
}

func escapeStreamPath(rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func (a *App) handleStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAuth(w, r); !ok {
		return
	}
	abs, err := a.resolveLibraryPath(r.PathValue("path"))
	if err != nil {
		if errors.Is(err, util.ErrPathEscape) {
			a.writeError(w, http.StatusForbidden, "access denied")
			return
		}
		a.writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}
	// ServeFile handles range requests, so seeking never retransmits the file.
	http.ServeFile(w, r, abs)
}

func (a *App) handleMarkWatched(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAuth(w, r); !ok {
		return
	}
	var req markWatchedRequest
	if err := decodeJSONBody(r, &req); err != nil || strings.TrimSpace(req.FilePath) == "" {
		a.writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if _, err := a.store.MarkWatched(util.NormalizeRelPath(req.FilePath), time.Now()); err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to record history")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requireAuth(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if err := decodeJSONBody(r, &req); err != nil || strings.TrimSpace(req.FilePath) == "" {
		a.writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if err := a.store.InsertReport(principal.UserID, util.NormalizeRelPath(req.FilePath), req.Comment); err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
