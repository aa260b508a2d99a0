// Package session owns the login/resolve/logout lifecycle of session tokens.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"multtv/internal/auth"
	"multtv/internal/db"
	"multtv/internal/util"
)

var (
	ErrRateLimited        = errors.New("too many login attempts")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("admin access required")
)

// Manager issues, validates and revokes session tokens. Expiry is lazy:
// expired sessions are deleted when looked up, and purged in bulk on login.
type Manager struct {
	store   *db.Store
	limiter *auth.LoginLimiter
	maxAge  time.Duration
	now     func() time.Time
}

func NewManager(store *db.Store, limiter *auth.LoginLimiter, maxAge time.Duration) *Manager {
	return &Manager{store: store, limiter: limiter, maxAge: maxAge, now: time.Now}
}

// MaxAge returns the configured session lifetime, used for cookie max-age.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Login verifies credentials and mints a session token. Unknown user and
// wrong password are indistinguishable to the caller. A successful
// verification against a legacy hash rewrites the record with a bcrypt hash
// before the session is created.
func (m *Manager) Login(username, password, sourceAddr string) (string, auth.Principal, error) {
	if !m.limiter.Allow(sourceAddr) {
		return "", auth.Principal{}, ErrRateLimited
	}

	user, err := m.store.GetUserByUsername(username)
	if err != nil {
		m.limiter.Fail(sourceAddr)
		return "", auth.Principal{}, ErrInvalidCredentials
	}
	ok, needsRehash := auth.VerifyPassword(password, user.PasswordHash, user.Salt)
	if !ok {
		m.limiter.Fail(sourceAddr)
		return "", auth.Principal{}, ErrInvalidCredentials
	}
	m.limiter.Clear(sourceAddr)

	if needsRehash {
		newHash, err := auth.HashPassword(password)
		if err == nil {
			if err := m.store.SetUserPassword(user.ID, newHash); err != nil {
				return "", auth.Principal{}, fmt.Errorf("migrate password hash: %w", err)
			}
		}
	}

	if err := m.store.DeleteSessionsOlderThan(m.now().Add(-m.maxAge)); err != nil {
		return "", auth.Principal{}, err
	}

	token, err := util.RandomToken(32)
	if err != nil {
		return "", auth.Principal{}, err
	}
	if err := m.store.CreateSession(token, user.ID); err != nil {
		return "", auth.Principal{}, err
	}
	return token, auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Resolve maps a token to its owner. A session older than the configured
// maximum is deleted and reported as unauthenticated.
func (m *Manager) Resolve(token string) (auth.Principal, error) {
	if token == "" {
		return auth.Principal{}, ErrUnauthenticated
	}
	sess, user, err := m.store.GetSessionUser(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Principal{}, ErrUnauthenticated
		}
		return auth.Principal{}, err
	}
	if m.now().Sub(sess.CreatedAt) > m.maxAge {
		_ = m.store.DeleteSession(token)
		return auth.Principal{}, ErrUnauthenticated
	}
	return auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// ResolveAdmin is Resolve plus a role check.
func (m *Manager) ResolveAdmin(token string) (auth.Principal, error) {
	p, err := m.Resolve(token)
	if err != nil {
		return auth.Principal{}, err
	}
	if !p.IsAdmin() {
		return auth.Principal{}, ErrForbidden
	}
	return p, nil
}

// Logout deletes the session; revoking an unknown token is not an error.
func (m *Manager) Logout(token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(token)
}
