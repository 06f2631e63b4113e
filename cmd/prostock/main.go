package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/erazemk/prostock/internal/api"
	"github.com/erazemk/prostock/internal/auth"
	"github.com/erazemk/prostock/internal/config"
	"github.com/erazemk/prostock/internal/db"
	"github.com/erazemk/prostock/internal/lifecycle"
	"github.com/erazemk/prostock/internal/metrics"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger installs the default logger. With a non-empty logPath every
// level is also appended to that file. The returned cleanup may be nil.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("prostock", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: prostock [flags]

Flags:
  -c, -config <path>      YAML config file (default: none)
  -d, -db <path>          SQLite database path (default: prostock.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment: PROSTOCK_DB, PROSTOCK_ADDR, PROSTOCK_LOG, PROSTOCK_ADMIN_USER,
PROSTOCK_RATE_LIMIT. A .env file in the working directory is read if present.
Flags override the environment, which overrides the config file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logPath != "" {
		cfg.Log.File = logPath
	}

	closeLog, err := setupLogger(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	version, err := db.SchemaVersion(database)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.Database.Path, "schema", version)

	if err := bootstrapAdmin(ctx, database, cfg.Auth.AdminUser); err != nil {
		return err
	}

	// Generated and stored on first run.
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	m := metrics.New()
	handler := api.NewRouter(api.Deps{
		DB:        database,
		Engine:    lifecycle.New(database, lifecycle.WithRecorder(m)),
		Tokens:    auth.NewIssuer(jwtSecret, cfg.Auth.TokenTTL),
		Metrics:   m,
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst: cfg.Server.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr, "rate_limit", cfg.Server.RateLimitPerSec)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// bootstrapAdmin creates the first admin account on an empty database and
// prints its one-time password.
func bootstrapAdmin(ctx context.Context, database *sqlx.DB, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("admin account created", "user", username)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println()
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
