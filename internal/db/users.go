package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"multtv/internal/auth"
)

// ErrUsernameTaken reports a duplicate username on create.
var ErrUsernameTaken = errors.New("username already exists")

func (s *Store) CreateUser(username, passwordHash string, role auth.Role) (int64, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	res, err := s.db.Exec(`INSERT INTO users(username, password_hash, salt, role) VALUES (?, ?, '', ?)`,
		username, passwordHash, string(role))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &role, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (s *Store) GetUserByUsername(username string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	return scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, salt, role, created_at FROM users WHERE username = ?`, username))
}

func (s *Store) GetUserByID(id int64) (User, error) {
	return scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, salt, role, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT id, username, password_hash, salt, role, created_at FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = auth.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteUser removes the user; their sessions and reports cascade.
func (s *Store) DeleteUser(id int64) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetUserPassword overwrites the stored hash with a bcrypt one and clears
// the legacy salt.
func (s *Store) SetUserPassword(id int64, passwordHash string) error {
	res, err := s.db.Exec(`UPDATE users SET password_hash = ?, salt = '' WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CountUsers() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
