// ABOUTME: Entry point for the pdguardd privacy-settings daemon
// ABOUTME: Serves the HTTP API, runs periodic purge, and guards the mirror tree

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/pdguard/pdguard/internal/api"
	"github.com/pdguard/pdguard/internal/authz"
	"github.com/pdguard/pdguard/internal/config"
	"github.com/pdguard/pdguard/internal/installed"
	"github.com/pdguard/pdguard/internal/notify"
	"github.com/pdguard/pdguard/internal/service"
	"github.com/pdguard/pdguard/internal/store"
	"github.com/pdguard/pdguard/internal/watcher"
)

// version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _                          _
  _ __   __| | __ _ _   _  __ _ _ __ __| |
 | '_ \ / _' |/ _' | | | |/ _' | '__/ _' |
 | |_) | (_| | (_| | |_| | (_| | | | (_| |
 | .__/ \__,_|\__, |\__,_|\__,_|_|  \__,_|
 |_|          |___/
`

// getConfigPath returns the daemon config file location.
// Priority: PDGUARD_CONFIG env var > XDG_CONFIG_HOME/pdguard/pdguardd.yaml >
// ~/.config/pdguard/pdguardd.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PDGUARD_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "pdguardd.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pdguard", "pdguardd.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pdguardd <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve              Start the privacy-settings daemon")
		fmt.Println("  init               Write a starter config file")
		fmt.Println("  bootstrap-token    Mint a capability token for a caller")
		fmt.Println("  purge              Run one reconciliation pass and exit")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap-token":
		err = runBootstrapToken(os.Args[2:])
	case "purge":
		err = runPurge(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Mirror:   %s\n", cfg.Database.MirrorDir)
	fmt.Println()

	logger.Info("starting pdguardd",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"database", cfg.Database.Path,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path, cfg.Database.MirrorDir, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	keys := authz.NewKeyVerifier()
	defer keys.Close()

	notifier := notify.New(st, logger)
	gate := authz.NewGate(st, keys, logger)

	opts := service.Options{}
	if cfg.Purge.InstalledFile != "" {
		fl := &installed.FileLister{Path: cfg.Purge.InstalledFile}
		opts.Lister = fl
		opts.Resolver = fl
	}

	svc, err := service.New(ctx, st, gate, notifier, opts, logger)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if cfg.Watcher.Enabled {
		w := watcher.New(cfg.Database.MirrorDir, st, logger)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting mirror watcher: %w", err)
		}
		defer w.Close()
	}

	if opts.Lister != nil {
		go runPurgeLoop(ctx, svc, cfg.Purge.Interval, logger)
	}

	verifier := authz.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.NewRouter(svc, verifier, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// daemonContext carries the system identity the internal loops run under.
func daemonContext(ctx context.Context) context.Context {
	return authz.WithIdentity(ctx, &authz.Identity{
		UID:         authz.SystemUID,
		PackageName: "pdguardd",
	})
}

// runPurgeLoop reconciles at startup and then on every tick.
func runPurgeLoop(ctx context.Context, svc *service.Service, interval time.Duration, logger *slog.Logger) {
	ctx = daemonContext(ctx)

	if err := svc.Purge(ctx); err != nil {
		logger.Error("startup purge failed", "error", err)
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.Purge(ctx); err != nil {
				logger.Error("periodic purge failed", "error", err)
			}
		}
	}
}

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	starter := `server:
  http_addr: "127.0.0.1:8471"

database:
  path: "/var/lib/pdguard/privacy.db"
  mirror_dir: "/var/lib/pdguard/mirror"

auth:
  jwt_secret: "${PDGUARD_JWT_SECRET}"

purge:
  interval: "1h"
  installed_file: "/var/lib/pdguard/installed.list"

watcher:
  enabled: true

logging:
  level: "info"
  format: "text"
`
	if err := os.WriteFile(configPath, []byte(starter), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	color.New(color.FgGreen).Printf("Wrote %s\n", configPath)
	return nil
}

func runBootstrapToken(args []string) error {
	fs := flag.NewFlagSet("bootstrap-token", flag.ExitOnError)
	pkg := fs.String("package", "", "caller package name (required)")
	uid := fs.Int("uid", authz.SystemUID, "caller kernel UID")
	caps := fs.String("caps", strings.Join([]string{
		authz.CapReadSettings, authz.CapWriteSettings, authz.CapManageApps,
	}, ","), "comma-separated capabilities")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	sig := fs.String("signature", "", "signing-certificate digest to bind")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pkg == "" {
		return errors.New("--package is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verifier := authz.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.GenerateWithSignature(*pkg, *uid,
		strings.Split(*caps, ","), *sig, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	color.New(color.FgGreen).Printf("Token for %s (uid %d, ttl %s):\n", *pkg, *uid, *ttl)
	fmt.Println(token)
	return nil
}

func runPurge(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Purge.InstalledFile == "" {
		return errors.New("purge.installed_file is not configured")
	}

	logger := setupLogger(cfg.Logging)
	st, err := store.NewSQLiteStore(cfg.Database.Path, cfg.Database.MirrorDir, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	fl := &installed.FileLister{Path: cfg.Purge.InstalledFile}
	pkgs, err := fl.List(ctx)
	if err != nil {
		return fmt.Errorf("listing installed packages: %w", err)
	}
	if err := st.PurgeSettings(ctx, pkgs); err != nil {
		return fmt.Errorf("purging settings: %w", err)
	}
	color.New(color.FgGreen).Printf("Purged against %d installed packages\n", len(pkgs))
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
