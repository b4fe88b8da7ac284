// ABOUTME: Process-wide zap logger with optional rotating file output
// ABOUTME: Console encoding goes to stderr; lumberjack handles the log file when configured

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Z is the global logger. It discards everything until Init is called.
	Z = zap.NewNop()
	// L is the sugared form of Z.
	L = Z.Sugar()

	file *lumberjack.Logger
)

// Config selects the level and the optional log file.
type Config struct {
	Level      string `json:"level,omitempty"` // debug, info, warn, error
	File       string `json:"file,omitempty"`  // empty logs to stderr only
	MaxSize    int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAge     int    `json:"max_age_days,omitempty"`
}

// ParseLevel maps a level name to its zap level. The empty name means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", name)
	}
}

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	z, err := New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	Z = z
	L = z.Sugar()
	return nil
}

// New builds a logger writing to console and, when cfg.File is set, to a
// rotating file as well.
func New(cfg Config, console io.Writer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	output := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSize, 64),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAge, 7),
			Compress:   true,
		}
		output = io.MultiWriter(console, file)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		level,
	)
	return zap.New(core), nil
}

// Sync flushes buffered entries and closes the log file, if any.
func Sync() {
	_ = Z.Sync()
	if file != nil {
		_ = file.Close()
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
