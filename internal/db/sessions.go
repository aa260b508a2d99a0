package db

import (
	"fmt"
	"time"

	"multtv/internal/auth"
)

func (s *Store) CreateSession(token string, userID int64) error {
	_, err := s.db.Exec(`INSERT INTO sessions(token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionUser returns the session joined to its owning user. Expiry is
// the caller's concern; this only reads.
func (s *Store) GetSessionUser(token string) (Session, User, error) {
	var sess Session
	var u User
	var role string
	err := s.db.QueryRow(`SELECT s.token, s.user_id, s.created_at, u.id, u.username, u.password_hash, u.salt, u.role, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id WHERE s.token = ?`, token).
		Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &u.ID, &u.Username, &u.PasswordHash, &u.Salt, &role, &u.CreatedAt)
	if err != nil {
		return Session{}, User{}, err
	}
	u.Role = auth.Role(role)
	return sess, u, nil
}

// DeleteSession is idempotent; deleting an unknown token is not an error.
func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSessionsOlderThan(ts time.Time) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE created_at < ?`, ts.UTC())
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	return nil
}

func (s *Store) DeleteSessionsForUser(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
