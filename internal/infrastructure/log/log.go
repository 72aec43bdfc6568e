// Package log provides the zap-backed implementation of interfaces.Logger,
// with lumberjack-managed file rotation for the node's system log.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ledgercore/node/pkg/interfaces"
)

// Options configures the on-disk rotation policy and console mirroring.
type Options struct {
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
	Level      zapcore.Level
}

// DefaultOptions mirrors the rotation defaults the node ships with.
func DefaultOptions() Options {
	return Options{
		FilePath:   "logs/node.log",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Console:    true,
		Level:      zapcore.InfoLevel,
	}
}

// Logger wraps a zap.SugaredLogger to satisfy interfaces.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ interfaces.Logger = (*Logger)(nil)

// New builds a Logger writing structured entries to a rotated file and,
// optionally, to the console.
func New(opts Options) (*Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	})

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, opts.Level),
	}
	if opts.Console {
		consoleCfg := encoderCfg
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), opts.Level))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller())
	return &Logger{sugar: zl.Sugar()}, nil
}

func (l *Logger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *Logger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...any) { l.sugar.Fatalw(msg, fields...) }

// With returns a derived logger carrying key=value on every subsequent
// entry, matching the module-tagging convention (e.g. With("module", "consensus")).
func (l *Logger) With(key string, value any) interfaces.Logger {
	return &Logger{sugar: l.sugar.With(key, value)}
}
