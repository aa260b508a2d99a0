package db

import (
	"fmt"
	"strings"
	"time"
)

// SaveVerdict upserts the validation verdict for a file.
func (s *Store) SaveVerdict(v Verdict) error {
	ok := 0
	if v.OK {
		ok = 1
	}
	_, err := s.db.Exec(`INSERT INTO video_checks(file_path, ok, errors, video_codec, audio_codec, duration, size_mb, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			ok = excluded.ok, errors = excluded.errors,
			video_codec = excluded.video_codec, audio_codec = excluded.audio_codec,
			duration = excluded.duration, size_mb = excluded.size_mb,
			checked_at = excluded.checked_at`,
		v.FilePath, ok, strings.Join(v.Errors, "; "), v.VideoCodec, v.AudioCodec, v.Duration, v.SizeMB, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save verdict: %w", err)
	}
	return nil
}

// BlockedPaths returns the set of file paths that failed validation.
func (s *Store) BlockedPaths() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT file_path FROM video_checks WHERE ok = 0`)
	if err != nil {
		return nil, fmt.Errorf("blocked paths: %w", err)
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

func (s *Store) ListVerdicts() ([]Verdict, error) {
	rows, err := s.db.Query(`SELECT file_path, ok, errors, video_codec, audio_codec, duration, size_mb, checked_at
		FROM video_checks ORDER BY checked_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	out := make([]Verdict, 0)
	for rows.Next() {
		var v Verdict
		var ok int
		var errText string
		if err := rows.Scan(&v.FilePath, &ok, &errText, &v.VideoCodec, &v.AudioCodec, &v.Duration, &v.SizeMB, &v.CheckedAt); err != nil {
			return nil, err
		}
		v.OK = ok == 1
		if errText != "" {
			v.Errors = strings.Split(errText, "; ")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
