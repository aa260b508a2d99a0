package db

import (
	"fmt"
	"time"
)

// MarkWatched appends a history entry for path unless one was already
// written today. Returns true when a new entry was recorded.
func (s *Store) MarkWatched(path string, now time.Time) (bool, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM history WHERE file_path = ? AND watched_at >= ?`,
		path, dayStart.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check history: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.db.Exec(`INSERT INTO history(file_path, watched_at) VALUES (?, ?)`, path, now.UTC()); err != nil {
		return false, fmt.Errorf("insert history: %w", err)
	}
	return true, nil
}

// RecentlyWatched returns the set of file paths watched since the cutoff.
func (s *Store) RecentlyWatched(since time.Time) (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT DISTINCT file_path FROM history WHERE watched_at > ?`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) CountHistory() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM history`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ResetHistory() error {
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}
