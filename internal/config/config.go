package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CompleteDirName is the canonical completed-downloads folder under the
// library root; only its immediate subfolders count as selectable shows.
const CompleteDirName = "complete"

// StagingDirNames are download-manager working folders skipped when deriving
// a show name from a file path.
var StagingDirNames = []string{"complete", "incomplete"}

type Config struct {
	Bind              string `json:"bind"`
	Port              int    `json:"port"`
	LogLevel          string `json:"log_level"`
	DataDir           string `json:"data_dir"`
	VideoDir          string `json:"video_dir"`
	SessionMaxAgeDays int    `json:"session_max_age_days"`
	ProbeTimeoutSec   int    `json:"probe_timeout_sec"`
	TransmissionURL   string `json:"transmission_url"`
	TransmissionUser  string `json:"transmission_user"`
	TransmissionPass  string `json:"-"`
}

// SessionMaxAge returns the configured session lifetime.
func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeDays) * 24 * time.Hour
}

// CompleteDir returns the completed-downloads directory under the video root.
func (c Config) CompleteDir() string {
	return filepath.Join(c.VideoDir, CompleteDirName)
}

func DefaultPaths() (configPath, dataDir string, err error) {
	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve user config dir: %w", err)
	}
	dataRoot := cfgRoot
	if home, derr := os.UserHomeDir(); derr == nil {
		dataRoot = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(cfgRoot, "multtv", "config.json"), filepath.Join(dataRoot, "multtv"), nil
}

func Default(dataDir string) Config {
	return Config{
		Bind:              "0.0.0.0",
		Port:              8080,
		LogLevel:          "info",
		DataDir:           dataDir,
		VideoDir:          "/downloads",
		SessionMaxAgeDays: 30,
		ProbeTimeoutSec:   30,
		TransmissionURL:   "http://transmission:9091",
		TransmissionUser:  "admin",
	}
}

// LoadOrDefault reads the config file, falling back to defaults when it does
// not exist. Downloader credentials come from the environment so they never
// land in the config file.
func LoadOrDefault(configPath, dataDirOverride string) (Config, error) {
	_, defaultData, err := DefaultPaths()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(defaultData)

	b, err := os.ReadFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if dataDirOverride != "" {
		cfg.DataDir = dataDirOverride
	}
	if v := strings.TrimSpace(os.Getenv("MULTTV_TRANSMISSION_USER")); v != "" {
		cfg.TransmissionUser = v
	}
	cfg.TransmissionPass = os.Getenv("MULTTV_TRANSMISSION_PASS")
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(configPath string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(configPath, buf, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.VideoDir) == "" {
		return fmt.Errorf("video_dir cannot be empty")
	}
	if cfg.SessionMaxAgeDays <= 0 {
		return fmt.Errorf("session_max_age_days must be positive")
	}
	if cfg.ProbeTimeoutSec <= 0 {
		return fmt.Errorf("probe_timeout_sec must be positive")
	}
	if strings.TrimSpace(cfg.TransmissionURL) == "" {
		return fmt.Errorf("transmission_url cannot be empty")
	}
	return nil
}

func ConfigPathFromEnv() (string, error) {
	if p := strings.TrimSpace(os.Getenv("MULTTV_CONFIG")); p != "" {
		return p, nil
	}
	cfgPath, _, err := DefaultPaths()
	return cfgPath, err
}
