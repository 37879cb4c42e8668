package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a zap logger from the logging settings. Console output
// goes to stderr so reports on stdout stay clean.
func newLogger(s config.LoggingSettings) (*zap.Logger, error) {
	level := strings.ToLower(s.Level)
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", s.Level)
	}

	format := s.Format
	if format == "" {
		format = "console"
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", s.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	if s.File != "" {
		if dir := filepath.Dir(s.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		file, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", s.File, err)
		}
		_ = file.Close()
		cfg.OutputPaths = []string{s.File}
		cfg.ErrorOutputPaths = []string{s.File}
	}

	return cfg.Build()
}
