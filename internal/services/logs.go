package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/pkg/process"
)

// LogSource describes where the logs of a workspace live for one
// infrastructure and how to copy them out.
type LogSource interface {
	// LogInfos lists the logs to read.
	LogInfos() []models.LogInfo
	// CanReadLogs reports whether logs can be read from this host at all.
	CanReadLogs(ctx context.Context) bool
	// ReadLogsCommand returns the shell command copying src of the workspace
	// into the local directory dst.
	ReadLogsCommand(workspaceID, dst, src string) string
}

// NewLogSource returns the log source matching the infrastructure.
func NewLogSource(cfg *config.Configuration, runner process.Runner) LogSource {
	switch cfg.Platform.Infrastructure {
	case config.InfrastructureDocker:
		docker := process.NewDocker(runner, cfg.Platform.Host)
		if cfg.Platform.IPImage != "" {
			docker = docker.WithIPImage(cfg.Platform.IPImage)
		}
		return NewDockerLogSource(docker)
	case config.InfrastructureOpenShift, config.InfrastructureK8S:
		return NewOpenShiftLogSource(cfg.Platform.Namespace)
	default:
		return DisabledLogSource{}
	}
}

// LogReader copies workspace logs to the local filesystem. It ignores absent
// or empty log directories and never returns an error: it runs after a test
// already failed and must not hide that failure.
type LogReader struct {
	source LogSource
	runner process.Runner
}

func NewLogReader(source LogSource, runner process.Runner) *LogReader {
	return &LogReader{source: source, runner: runner}
}

// StoreWorkspace stores the logs of ws under destDir/<id>.
func (r *LogReader) StoreWorkspace(ctx context.Context, ws *models.Workspace, destDir string, suppressWarnings bool) {
	if ws == nil {
		return
	}
	r.Store(ctx, ws.ID, destDir, suppressWarnings)
}

// Store copies every declared log of the workspace into
// destDir/<workspaceID>/<log name>, then removes the directories left empty.
func (r *LogReader) Store(ctx context.Context, workspaceID, destDir string, suppressWarnings bool) {
	if workspaceID == "" {
		return
	}
	if !r.source.CanReadLogs(ctx) {
		return
	}

	workspaceDir := filepath.Join(destDir, workspaceID)
	for _, info := range r.source.LogInfos() {
		r.storeLog(ctx, info, workspaceID, workspaceDir, suppressWarnings)
	}

	removeDirIfEmpty(workspaceDir)
	removeDirIfEmpty(destDir)
}

func (r *LogReader) storeLog(ctx context.Context, info models.LogInfo, workspaceID, workspaceDir string, suppressWarnings bool) {
	logDir := filepath.Join(workspaceDir, info.Name)
	defer removeDirIfEmpty(logDir)

	if err := r.copyLog(ctx, info, workspaceID, logDir); err != nil && !suppressWarnings {
		zap.S().Named("log_reader").Warnw("can't obtain workspace logs",
			"log", info.Name, "workspace_id", workspaceID, "location", info.Location, "error", err)
	}
}

func (r *LogReader) copyLog(ctx context.Context, info models.LogInfo, workspaceID, logDir string) error {
	if err := os.MkdirAll(filepath.Dir(logDir), 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", filepath.Dir(logDir), err)
	}
	_, err := r.runner.Run(ctx, r.source.ReadLogsCommand(workspaceID, logDir, info.Location))
	return err
}

// removeDirIfEmpty removes dir when it exists and has no entries. Failures
// are only debug-logged.
func removeDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.S().Named("log_reader").Debugw("can't read log directory", "dir", dir, "error", err)
		}
		return
	}
	if len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		zap.S().Named("log_reader").Debugw("can't remove empty log directory", "dir", dir, "error", err)
	}
}
