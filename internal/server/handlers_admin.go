package server

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"multtv/internal/auth"
	"multtv/internal/db"
	"multtv/internal/util"
	"multtv/internal/video"
)

func (a *App) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	users, err := a.store.ListUsers()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	a.writeJSON(w, http.StatusOK, users)
}

func (a *App) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSONBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Role == "" {
		req.Role = string(auth.RoleUser)
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.store.CreateUser(req.Username, hash, role); err != nil {
		if errors.Is(err, db.ErrUsernameTaken) {
			a.writeError(w, http.StatusConflict, "username already exists")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func (a *App) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == admin.UserID {
		a.writeError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}
	if err := a.store.DeleteUser(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req changePasswordRequest
	if err := decodeJSONBody(r, &req); err != nil || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.store.SetUserPassword(id, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	// Password change revokes every open session of that user.
	if err := a.store.DeleteSessionsForUser(id); err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	totalUsers, err := a.store.CountUsers()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to count users")
		return
	}
	totalViews, err := a.store.CountHistory()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to count history")
		return
	}
	files, err := a.indexer.ScanAll()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to scan library")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"total_users":  totalUsers,
		"total_views":  totalViews,
		"total_videos": len(files),
	})
}

func (a *App) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	if err := a.store.ResetHistory(); err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to reset history")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func sizeMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*10) / 10
}

func (a *App) handleBrowse(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	rel := util.NormalizeRelPath(r.URL.Query().Get("path"))
	abs, err := a.resolveLibraryPath(rel)
	if err != nil {
		a.writeError(w, http.StatusForbidden, "access denied")
		return
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		a.writeError(w, http.StatusNotFound, "directory not found")
		return
	}

	folders := make([]string, 0)
	files := make([]browseFile, 0)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			folders = append(folders, e.Name())
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, browseFile{
			Name:   e.Name(),
			Path:   util.NormalizeRelPath(rel + "/" + e.Name()),
			SizeMB: sizeMB(info.Size()),
		})
	}
	sort.Strings(folders)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	a.writeJSON(w, http.StatusOK, map[string]any{
		"current_path": rel,
		"folders":      folders,
		"files":        files,
	})
}

func (a *App) handleListVideos(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	all, err := a.indexer.ScanAll()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to scan library")
		return
	}
	videos := make([]browseFile, 0, len(all))
	for _, f := range all {
		info, err := os.Stat(f.Abs)
		if err != nil {
			continue
		}
		videos = append(videos, browseFile{
			Name:   filepath.Base(f.Abs),
			Path:   f.Rel,
			SizeMB: sizeMB(info.Size()),
		})
	}
	a.writeJSON(w, http.StatusOK, videos)
}

func (a *App) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	abs, err := a.resolveLibraryPath(r.PathValue("path"))
	if err != nil {
		a.writeError(w, http.StatusForbidden, "access denied")
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := os.Remove(abs); err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handlePlay(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var req playRequest
	if err := decodeJSONBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	rel := util.NormalizeRelPath(req.Path)
	abs, err := a.resolveLibraryPath(rel)
	if err != nil {
		a.writeError(w, http.StatusForbidden, "access denied")
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(abs), ".mp4") {
		a.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	a.writeJSON(w, http.StatusOK, pickResponse{
		Title:    filepath.Base(abs),
		URL:      "/stream/" + escapeStreamPath(rel),
		FilePath: rel,
		Show:     a.indexer.ShowName(rel),
	})
}

func (a *App) handleListReports(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	reports, err := a.store.ListReports()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	a.writeJSON(w, http.StatusOK, reports)
}

func (a *App) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	if err := a.store.DeleteReport(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.writeError(w, http.StatusNotFound, "report not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleStartValidation kicks off one library sweep off the request path.
// Only one sweep runs at a time.
func (a *App) handleStartValidation(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	a.mu.Lock()
	if a.validating {
		a.mu.Unlock()
		a.writeJSON(w, http.StatusAccepted, map[string]any{"running": true})
		return
	}
	a.validating = true
	a.mu.Unlock()

	go a.runValidationSweep()
	a.writeJSON(w, http.StatusAccepted, map[string]any{"running": true, "started": true})
}

func (a *App) runValidationSweep() {
	defer func() {
		a.mu.Lock()
		a.validating = false
		a.mu.Unlock()
	}()

	files, err := a.indexer.ScanAll()
	if err != nil {
		a.logger.Error("validation sweep scan", "err", err)
		return
	}
	validator := video.NewValidator(a.probe)
	for _, f := range files {
		verdict := validator.Validate(context.Background(), f.Abs, f.Rel)
		if err := a.store.SaveVerdict(verdict); err != nil {
			a.logger.Error("save verdict", "path", f.Rel, "err", err)
			continue
		}
		if !verdict.OK {
			a.logger.Warn("video failed validation", "path", f.Rel, "errors", strings.Join(verdict.Errors, "; "))
		}
	}
	a.logger.Info("validation sweep finished", "files", len(files))
}

func (a *App) handleValidationResults(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	verdicts, err := a.store.ListVerdicts()
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list verdicts")
		return
	}
	a.mu.Lock()
	running := a.validating
	a.mu.Unlock()
	a.writeJSON(w, http.StatusOK, map[string]any{"running": running, "results": verdicts})
}
