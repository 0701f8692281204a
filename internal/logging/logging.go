package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is debug|info|warn|error (default info).
	Level string
	// File receives JSON log lines. Empty means: Stderr when true, otherwise discard.
	File   string
	Stderr bool
	// Verbose forces debug level.
	Verbose bool
}

// New builds the process logger. The TUI owns the terminal, so it only logs to a file.
func New(opt Options) (*zap.Logger, error) {
	file := strings.TrimSpace(opt.File)
	if file == "" && !opt.Stderr {
		return zap.NewNop(), nil
	}

	level, err := parseLevel(opt.Level)
	if err != nil {
		return nil, err
	}
	if opt.Verbose {
		level = zapcore.DebugLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		config.OutputPaths = []string{file}
		config.ErrorOutputPaths = []string{file}
	} else {
		config.Encoding = "console"
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	return config.Build()
}

func parseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
