package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/filemgr/spacescan/internal/api"
	"github.com/filemgr/spacescan/internal/checksum"
	"github.com/filemgr/spacescan/internal/config"
	"github.com/filemgr/spacescan/internal/db"
	"github.com/filemgr/spacescan/internal/history"
	"github.com/filemgr/spacescan/internal/provider/nextcloud"
	"github.com/filemgr/spacescan/internal/provider/webdav"
	"github.com/filemgr/spacescan/internal/report"
	"github.com/filemgr/spacescan/internal/scan"
	"github.com/filemgr/spacescan/internal/scheduler"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// ── Logging (initial — overridden below once config is loaded) ─────────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	// Re-configure logging with the level (and optional rotating file sink)
	// from config.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("spacescan starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"db_path", cfg.DBPath,
		"data_root", cfg.DataRoot)

	// ── Database (scan-history audit) ──────────────────────────────────────
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	// A previous process that crashed mid-scan left rows in_progress that can
	// never finish: registry state does not survive restarts.
	if err := history.MarkStaleFailed(database); err != nil {
		slog.Warn("mark stale scans", "error", err)
	}
	hist := history.New(database)

	// ── Scan stack ─────────────────────────────────────────────────────────
	// Provider paths resolve under the mounted storage root.
	rootFs := afero.NewBasePathFs(afero.NewOsFs(), cfg.DataRoot)
	reports := report.NewStore(rootFs, cfg.ReportDir)
	computer := checksum.New(rootFs)

	engine := scan.NewEngine(reports, computer)
	registry := scan.NewRegistry()
	runner := scan.NewRunner(engine, registry, hist)

	dav := webdav.New(cfg.Nextcloud.WebDAVURL, cfg.Nextcloud.Username, cfg.Nextcloud.Password)
	nc := nextcloud.New(cfg.Nextcloud.BaseURL, cfg.Nextcloud.Username, cfg.Nextcloud.Password)

	svc := scan.NewService(dav, engine, registry, runner, reports, hist)

	// ── Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New()
	if cfg.Schedule != "" && len(cfg.Spaces) > 0 {
		spaces := cfg.Spaces
		if err := sched.SetJob(cfg.Schedule, func() {
			for _, space := range spaces {
				slog.Info("scheduled scan triggered", "space", space)
				if _, err := svc.Start(context.Background(), space); err != nil {
					slog.Warn("scheduled scan start", "space", space, "error", err)
				}
			}
		}); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.HTTPAddr, svc, registry, hist, dav, nc, sched, []byte(cfg.JWTSecret), version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Let in-flight slow scans finish their persisted writes before exit.
	slog.Info("waiting for in-flight scans")
	runner.Wait()
	slog.Info("spacescan stopped")
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
