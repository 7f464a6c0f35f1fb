// Package rlog builds the zap loggers used throughout the router. It is
// grounded on the teacher binary's initLogger: a colored console encoder
// for development, a JSON encoder for production, both with caller and
// error-level stacktraces enabled. File output goes through lumberjack,
// which rotates by file size only; there is no time-based rotation.
package rlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Dev selects a colored, human-readable console encoder. False selects
	// JSON output suited to log aggregation.
	Dev bool
	// Level is the minimum enabled level ("debug", "info", "warn", "error").
	// Defaults to "info".
	Level string
	// FilePath, if set, routes output through a rotating file writer
	// instead of stderr.
	FilePath string
}

// defaultRotation rotates when the file reaches lumberjack's default size
// limit (MaxSize is not set) and compresses old files. It keeps at most 30
// backups and removes any backup older than one day (MaxAge: 1); the file
// is not rotated on a daily schedule.
func defaultRotation(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxAge:     1,
		MaxBackups: 30,
		Compress:   true,
	}
}

// New builds a *zap.Logger from Config.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	var encoder zapcore.Encoder
	if cfg.Dev {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.MessageKey = "message"
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.FilePath != "" {
		sink = zapcore.AddSync(defaultRotation(cfg.FilePath))
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)
	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return logger, nil
}

// Nop returns a logger that discards everything, for tests and for
// components constructed without explicit logging configuration.
func Nop() *zap.Logger { return zap.NewNop() }
