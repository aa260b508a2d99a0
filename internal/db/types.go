package db

import (
	"time"

	"multtv/internal/auth"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FilePath  string    `json:"file_path"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Verdict is the persisted outcome of a video integrity check. Rows with
// OK=false form the blocked set excluded from selection.
type Verdict struct {
	FilePath   string    `json:"file_path"`
	OK         bool      `json:"ok"`
	Errors     []string  `json:"errors"`
	VideoCodec string    `json:"video_codec"`
	AudioCodec string    `json:"audio_codec"`
	Duration   float64   `json:"duration"`
	SizeMB     float64   `json:"size_mb"`
	CheckedAt  time.Time `json:"checked_at"`
}
