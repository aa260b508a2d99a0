package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"multtv/internal/auth"
	"multtv/internal/config"
	"multtv/internal/db"
	"multtv/internal/library"
	"multtv/internal/server"
	"multtv/internal/util"
	"multtv/internal/video"
)

type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

type rootState struct {
	configPath string
	dataDir    string
}

type serveFlags struct {
	bind     string
	port     int
	videoDir string
	logLevel string
}

func NewRootCmd(v VersionInfo) *cobra.Command {
	state := &rootState{}
	serve := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "multtv",
		Short: "Self-hosted random-episode picker for a shared video library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, state, serve, v)
		},
	}
	cmd.PersistentFlags().StringVar(&state.configPath, "config", "", "config path (default: platform user config)")
	cmd.PersistentFlags().StringVar(&state.dataDir, "data-dir", "", "data directory for the SQLite database")
	addServeFlags(cmd, serve)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, state, serve, v)
		},
	}
	addServeFlags(serveCmd, serve)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive first-run setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(state)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print config location and effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			fmt.Printf("Config path: %s\n", cfgPath)
			b, _ := json.MarshalIndent(cfg, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("multtv %s\ncommit: %s\nbuilt: %s\n", v.Version, v.Commit, v.Date)
		},
	}

	cmd.AddCommand(serveCmd, initCmd, configCmd, buildUserCommands(state), buildValidateCommand(state), versionCmd)
	return cmd
}

func addServeFlags(cmd *cobra.Command, f *serveFlags) {
	cmd.Flags().StringVar(&f.bind, "bind", "", "bind address (default from config)")
	cmd.Flags().IntVar(&f.port, "port", 0, "server port")
	cmd.Flags().StringVar(&f.videoDir, "video-dir", "", "video library root")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
}

func loadConfig(state *rootState) (string, config.Config, error) {
	cfgPath := strings.TrimSpace(state.configPath)
	if cfgPath == "" {
		p, err := config.ConfigPathFromEnv()
		if err != nil {
			return "", config.Config{}, err
		}
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath, state.dataDir)
	if err != nil {
		return "", config.Config{}, err
	}
	return cfgPath, cfg, nil
}

func runServe(cmd *cobra.Command, state *rootState, flags *serveFlags, v VersionInfo) error {
	cfgPath, cfg, err := loadConfig(state)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind = flags.bind
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flags.port
	}
	if cmd.Flags().Changed("video-dir") {
		cfg.VideoDir = flags.videoDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(flags.logLevel))
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.VideoDir); err != nil {
		return fmt.Errorf("video dir: %w", err)
	}

	urls := util.DiscoverURLs(cfg.Bind, cfg.Port)
	fmt.Printf("Library: %s\n", cfg.VideoDir)
	fmt.Printf("Config:  %s\n", cfgPath)
	fmt.Printf("Data:    %s\n", cfg.DataDir)
	fmt.Println("URLs:")
	for _, u := range urls {
		fmt.Printf("  - %s\n", u)
	}
	if len(urls) > 0 {
		fmt.Println("QR (scan from phone on same LAN):")
		util.PrintTerminalQR(urls[0])
	}
	fmt.Println("Press Ctrl+C to stop.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return server.Run(ctx, cfg, server.Options{Bind: cfg.Bind, Port: cfg.Port, Version: v.Version})
}

func runInit(state *rootState) error {
	cfgPath := strings.TrimSpace(state.configPath)
	if cfgPath == "" {
		p, err := config.ConfigPathFromEnv()
		if err != nil {
			return err
		}
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath, state.dataDir)
	if err != nil {
		return err
	}

	r := bufio.NewReader(os.Stdin)
	fmt.Println("multtv first-run setup")
	cfg.VideoDir = askWithDefault(r, "Video library root", cfg.VideoDir)
	cfg.DataDir = askWithDefault(r, "Data directory", cfg.DataDir)
	cfg.Bind = askWithDefault(r, "Bind address", cfg.Bind)
	cfg.Port = askIntWithDefault(r, "Port", cfg.Port)
	cfg.SessionMaxAgeDays = askIntWithDefault(r, "Session max age (days)", cfg.SessionMaxAgeDays)
	cfg.TransmissionURL = askWithDefault(r, "Transmission URL", cfg.TransmissionURL)

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	store, err := db.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.CountUsers()
	if err != nil {
		return err
	}
	if n <= 1 {
		username := strings.ToLower(strings.TrimSpace(askWithDefault(r, "Admin username", "admin")))
		password, err := promptPasswordTwice("Admin password")
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if u, err := store.GetUserByUsername(username); err == nil {
			if err := store.SetUserPassword(u.ID, hash); err != nil {
				return err
			}
			fmt.Printf("Updated password for %q\n", username)
		} else if _, err := store.CreateUser(username, hash, auth.RoleAdmin); err != nil {
			return err
		} else {
			fmt.Printf("Created admin user %q\n", username)
		}
	}

	fmt.Printf("Config saved to %s\n", cfgPath)
	fmt.Println("Run `multtv` to start serving.")
	return nil
}

func askWithDefault(r *bufio.Reader, label, def string) string {
	fmt.Printf("%s [%s]: ", label, def)
	text, _ := r.ReadString('\n')
	text = strings.TrimSpace(text)
	if text == "" {
		return def
	}
	return text
}

func askIntWithDefault(r *bufio.Reader, label string, def int) int {
	for {
		value := askWithDefault(r, label, fmt.Sprint(def))
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil && n > 0 {
			return n
		}
		fmt.Println("Please enter a positive integer.")
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		return string(b), err
	}
	reader := bufio.NewReader(os.Stdin)
	text, err := reader.ReadString('\n')
	return strings.TrimSpace(text), err
}

func promptPasswordTwice(label string) (string, error) {
	first, err := promptPassword(label)
	if err != nil {
		return "", err
	}
	second, err := promptPassword(label + " (confirm)")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if strings.TrimSpace(first) == "" {
		return "", errors.New("password cannot be empty")
	}
	return first, nil
}

func buildUserCommands(state *rootState) *cobra.Command {
	userCmd := &cobra.Command{Use: "user", Short: "User management"}
	role := "user"

	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			parsed, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			pass, err := promptPasswordTwice("Password")
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(pass)
			if err != nil {
				return err
			}
			username := strings.ToLower(strings.TrimSpace(args[0]))
			id, err := store.CreateUser(username, hash, parsed)
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (id=%d role=%s)\n", username, id, parsed)
			return nil
		},
	}
	addCmd.Flags().StringVar(&role, "role", "user", "role: user|admin")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			users, err := store.ListUsers()
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%d\t%s\t%s\n", u.ID, u.Username, u.Role)
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a user and their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			u, err := store.GetUserByUsername(args[0])
			if err != nil {
				return fmt.Errorf("user %q not found", args[0])
			}
			return store.DeleteUser(u.ID)
		},
	}

	passwdCmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			u, err := store.GetUserByUsername(args[0])
			if err != nil {
				return fmt.Errorf("user %q not found", args[0])
			}
			pass, err := promptPasswordTwice("New password")
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(pass)
			if err != nil {
				return err
			}
			if err := store.SetUserPassword(u.ID, hash); err != nil {
				return err
			}
			return store.DeleteSessionsForUser(u.ID)
		},
	}

	userCmd.AddCommand(addCmd, listCmd, removeCmd, passwdCmd)
	return userCmd
}

func buildValidateCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Probe every library file with ffprobe and persist verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(state)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			ix := library.NewIndexer(cfg.VideoDir, cfg.CompleteDir(), config.StagingDirNames)
			files, err := ix.ScanAll()
			if err != nil {
				return err
			}
			validator := video.NewValidator(video.NewFFProbe(time.Duration(cfg.ProbeTimeoutSec) * time.Second))

			failed := 0
			for _, f := range files {
				verdict := validator.Validate(cmd.Context(), f.Abs, f.Rel)
				if err := store.SaveVerdict(verdict); err != nil {
					return err
				}
				if verdict.OK {
					fmt.Printf("ok\t%s\n", f.Rel)
				} else {
					failed++
					fmt.Printf("FAIL\t%s\t%s\n", f.Rel, strings.Join(verdict.Errors, "; "))
				}
			}
			fmt.Printf("%d files checked, %d failed\n", len(files), failed)
			return nil
		},
	}
}
