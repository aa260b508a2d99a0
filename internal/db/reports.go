package db

import (
	"database/sql"
	"fmt"
)

func (s *Store) InsertReport(userID int64, filePath, comment string) error {
	_, err := s.db.Exec(`INSERT INTO reports(user_id, file_path, comment) VALUES (?, ?, ?)`,
		userID, filePath, comment)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) ListReports() ([]Report, error) {
	rows, err := s.db.Query(`SELECT r.id, r.user_id, u.username, r.file_path, r.comment, r.created_at
		FROM reports r JOIN users u ON u.id = r.user_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]Report, 0)
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.FilePath, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteReport(id int64) error {
	res, err := s.db.Exec(`DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
