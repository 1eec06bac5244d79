// Package logs builds the zap loggers used by the ipipe commands. The
// library itself only ever takes an optional logger; real logger
// construction lives here, next to the commands that need it.
package logs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bwHC-gko/ipipe/internal/config"
)

// Setup builds a logger from the daemon logging configuration: a console
// core on stderr plus, when enabled, a lumberjack-rotated file core.
func Setup(cfg *config.Logging) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stderr), level),
	}
	if cfg.File {
		fc, err := fileCore(cfg, level)
		if err != nil {
			return nil, fmt.Errorf("create file log core: %w", err)
		}
		cores = append(cores, fc)
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Command builds a console-only logger for the ipipe CLI. Quiet commands
// default to warn so normal output stays clean.
func Command(level string) (*zap.Logger, error) {
	if level == "" {
		level = "warn"
	}
	core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stderr), parseLevel(level))
	return zap.New(core), nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func fileCore(cfg *config.Logging, level zapcore.Level) (zapcore.Core, error) {
	dir := cfg.Dir
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "ipiped.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = consoleEncoder()
	}
	return zapcore.NewCore(enc, zapcore.AddSync(sink), level), nil
}
