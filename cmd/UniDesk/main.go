package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/UniDesk/internal/api"
	"github.com/BTreeMap/UniDesk/internal/auth"
	"github.com/BTreeMap/UniDesk/internal/bot"
	"github.com/BTreeMap/UniDesk/internal/config"
	"github.com/BTreeMap/UniDesk/internal/maxbot"
	"github.com/BTreeMap/UniDesk/internal/messaging"
	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/scheduler"
	"github.com/BTreeMap/UniDesk/internal/store"
	"github.com/BTreeMap/UniDesk/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for UniDesk state data
	DefaultStateDir = "/var/lib/unidesk"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "unidesk.db"
	// sessionSweepCron runs the idle-session janitor every five minutes
	sessionSweepCron = "*/5 * * * *"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	cfg := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(cfg)

	if *flags.jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := openStore(*flags.dbDSN)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	university, err := config.Load(*flags.universityConfig)
	if err != nil {
		slog.Error("Failed to load university catalog", "error", err)
		os.Exit(1)
	}

	authSvc, err := auth.NewService(st, *flags.jwtSecret, cfg.TokenTTL)
	if err != nil {
		slog.Error("Failed to create auth service", "error", err)
		os.Exit(1)
	}

	seedAdmin(authSvc, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session janitor for abandoned chatbot dialogs
	sessions := bot.NewInMemorySessionStore()
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(sessionSweepCron, func() {
		sessions.EvictIdle(cfg.SessionTTL)
	}); err != nil {
		slog.Error("Failed to schedule session janitor", "error", err)
		os.Exit(1)
	}

	// Messenger transport and dialog engine
	if cfg.BotEnabled && *flags.botToken != "" {
		clientOpts := []maxbot.Option{maxbot.WithToken(*flags.botToken)}
		if cfg.BotAPIBase != "" {
			clientOpts = append(clientOpts, maxbot.WithBaseURL(cfg.BotAPIBase))
		}
		client, err := maxbot.NewClient(clientOpts...)
		if err != nil {
			slog.Error("Failed to create bot client", "error", err)
			os.Exit(1)
		}
		transport := messaging.NewMaxService(client)
		if err := transport.Start(ctx); err != nil {
			slog.Error("Failed to start messenger transport", "error", err)
			os.Exit(1)
		}
		defer transport.Stop()

		engine := bot.NewEngine(sessions, st, authSvc, university, transport)
		go engine.Run(ctx, transport.Updates())
	} else {
		slog.Info("Messenger bot disabled", "bot_enabled", cfg.BotEnabled, "token_set", *flags.botToken != "")
	}

	slog.Info("Bootstrapping UniDesk", "api_addr", *flags.apiAddr, "dsn_set", *flags.dbDSN != "")
	server := api.NewServer(st, authSvc, university, api.WithAddr(*flags.apiAddr))
	if err := server.Run(ctx); err != nil {
		slog.Error("UniDesk failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("UniDesk exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	APIAddr          string
	BotToken         string
	BotAPIBase       string
	BotEnabled       bool
	JWTSecret        string
	TokenTTL         time.Duration
	SessionTTL       time.Duration
	UniversityConfig string
	AdminEmail       string
	AdminName        string
	AdminPassword    string
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	apiAddr          *string
	botToken         *string
	jwtSecret        *string
	universityConfig *string
}

// initializeLogger sets up structured logging with the level from $LOG_LEVEL.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("UNIDESK_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		BotToken:         os.Getenv("BOT_TOKEN"),
		BotAPIBase:       os.Getenv("BOT_API_BASE"),
		BotEnabled:       util.ParseBoolEnv("BOT_ENABLED", true),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         util.ParseDurationEnv("JWT_TTL", auth.DefaultTokenTTL),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", bot.DefaultSessionTTL),
		UniversityConfig: os.Getenv("UNIVERSITY_CONFIG"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminName:        os.Getenv("ADMIN_NAME"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}

	// Set default state directory if not specified
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
		slog.Debug("No UNIDESK_STATE_DIR set, using default", "default_state_dir", cfg.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", cfg.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", cfg.DatabaseURL != "",
		"UNIDESK_STATE_DIR", cfg.StateDir,
		"API_ADDR", cfg.APIAddr,
		"BOT_TOKEN_SET", cfg.BotToken != "",
		"BOT_ENABLED", cfg.BotEnabled,
		"JWT_SECRET_SET", cfg.JWTSecret != "",
		"SESSION_TTL", cfg.SessionTTL,
		"UNIVERSITY_CONFIG", cfg.UniversityConfig)

	return cfg
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(cfg Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", cfg.StateDir, "state directory for UniDesk data (overrides $UNIDESK_STATE_DIR)"),
		dbDSN:            flag.String("db-dsn", cfg.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		apiAddr:          flag.String("api-addr", cfg.APIAddr, "API server address (overrides $API_ADDR)"),
		botToken:         flag.String("bot-token", cfg.BotToken, "messenger bot token (overrides $BOT_TOKEN)"),
		jwtSecret:        flag.String("jwt-secret", cfg.JWTSecret, "JWT signing secret (overrides $JWT_SECRET)"),
		universityConfig: flag.String("university-config", cfg.UniversityConfig, "path to a university catalog override (overrides $UNIVERSITY_CONFIG)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"botToken_set", *flags.botToken != "",
		"universityConfig", *flags.universityConfig)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == cfg.DatabaseURL && cfg.DatabaseURL == filepath.Join(cfg.StateDir, DefaultDBFileName) && *flags.stateDir != cfg.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", cfg.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// openStore selects the backend from the DSN shape.
func openStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// seedAdmin creates the bootstrap admin account when configured and missing.
func seedAdmin(authSvc *auth.Service, cfg Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		slog.Debug("Admin seed skipped", "admin_email_set", cfg.AdminEmail != "")
		return
	}
	name := cfg.AdminName
	if name == "" {
		name = "Администратор"
	}
	user, err := authSvc.Register(cfg.AdminEmail, cfg.AdminPassword, name, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, models.ErrUserExists) {
			slog.Debug("Admin account already exists")
			return
		}
		slog.Error("Failed to seed admin account", "error", err)
		return
	}
	slog.Info("Admin account seeded", "user_id", user.ID)
}
