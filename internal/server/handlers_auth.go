package server

import (
	"net/http"
	"strings"
)

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, principal, err := a.sessions.Login(req.Username, req.Password, remoteIP(r))
	if err != nil {
		a.writeAuthError(w, err)
		return
	}
	a.setSessionCookie(w, token)
	a.writeJSON(w, http.StatusOK, principal)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(a.sessionToken(r)); err != nil {
		a.logger.Error("logout", "err", err)
	}
	a.clearSessionCookie(w)
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requireAuth(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, principal)
}
