// Package daemonrun boots the podscribe daemon process: it wires logging,
// the queue store, the workflow manager, pipeline stages, and the IPC
// server, then blocks until the process receives a termination signal.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"podscribe/internal/config"
	"podscribe/internal/daemon"
	"podscribe/internal/download"
	"podscribe/internal/ipc"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/preflight"
	"podscribe/internal/queue"
	"podscribe/internal/transcribe"
	"podscribe/internal/workflow"
)

// Options carries runtime settings supplied by the CLI.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run executes the daemon until the context is cancelled or a SIGINT/SIGTERM
// arrives. It owns process-level concerns (run log, PID file, socket path)
// and delegates lifecycle management to the daemon package.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("daemon run: configuration is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, "podscribe-"+runID+".log")

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	logger.Info("podscribe daemon starting",
		logging.String("run_id", runID),
		logging.String("log_path", logPath),
		logging.String(logging.FieldEventType, "daemon_starting"),
	)

	logPreflight(signalCtx, logger, cfg)

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logger.Warn("failed to update current log pointer", logging.Error(err))
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "podscribe-*.log",
		Exclude: []string{logPath},
	})

	pidPath := filepath.Join(cfg.Paths.LogDir, "podscribe.pid")
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write pid file",
			logging.String("path", pidPath),
			logging.Error(err),
		)
	} else {
		defer os.Remove(pidPath)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("failed to open queue database", logging.Error(err))
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	registerStages(mgr, cfg, store, logger, notifier)

	d, err := daemon.New(cfg, store, logger, mgr, logPath, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "podscribe.sock")
	}

	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("create IPC server: %w", err)
	}
	defer ipcServer.Close()

	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		// The daemon stays up so the CLI can inspect status and retry Start
		// over IPC once the underlying problem is fixed.
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process queue items until started"),
		)
	}
	defer d.Stop()

	logger.Info("podscribe daemon ready",
		logging.String("socket", socketPath),
		logging.String(logging.FieldEventType, "daemon_ready"),
	)

	<-signalCtx.Done()

	logger.Info("podscribe daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	return nil
}

// registerStages wires the download and transcription handlers into the
// workflow manager.
func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) {
	if mgr == nil || cfg == nil {
		return
	}
	mgr.ConfigureStages(workflow.StageSet{
		Downloader:  download.NewDownloader(cfg, store, logger, download.WithNotifier(notifier)),
		Transcriber: transcribe.NewTranscriberWithDependencies(cfg, store, logger, transcribe.NewService(cfg), notifier),
	})
}

// logPreflight runs the readiness checks once at startup and records the
// outcome. Failures are warnings, not fatal: the daemon can start with a
// missing binary and report it through status until the operator fixes it.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	failed := 0
	for _, result := range results {
		if result.Passed {
			continue
		}
		failed++
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_check_failed"),
		)
	}
	logger.Info("preflight checks complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", failed),
		logging.String(logging.FieldEventType, "preflight_complete"),
	)
}

// ensureCurrentLogPointer points <logDir>/podscribe.log at the active run
// log. Symlinks are preferred; hard links cover filesystems without symlink
// support.
func ensureCurrentLogPointer(logDir, target string) error {
	current := filepath.Join(logDir, "podscribe.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err != nil {
		if linkErr := os.Link(target, current); linkErr != nil {
			return fmt.Errorf("link log pointer: %w", linkErr)
		}
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
