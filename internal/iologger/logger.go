// Package iologger initializes the process-wide slog logger from
// configuration, including the log-file destination.
package iologger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/logger"
)

// Init builds the logger for cfg and installs it as the slog default.
// For the "file" destination the log lives under logDir and is
// appended to across runs.
func Init(logDir string, cfg config.LogConfig) (*slog.Logger, error) {
	var writer io.Writer
	switch cfg.Destination {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	case "file":
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		path := filepath.Join(logDir, config.AppName+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", path, err)
		}
		writer = file
	default:
		writer = os.Stderr
	}

	log := logger.New(writer, cfg)
	slog.SetDefault(log)
	return log, nil
}
