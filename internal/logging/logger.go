package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sntrack/config"
)

// Logger is the logging surface the rest of the program depends on.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Sync() error
}

// New builds a zap sugared logger for the given settings that writes to w.
// Hook runs pass stderr so stdout stays clean for the plot series.
func New(cfg config.LoggingConfig, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	sink := zapcore.AddSync(w)

	var (
		enc  zapcore.EncoderConfig
		opts = []zap.Option{zap.AddCaller(), zap.ErrorOutput(sink)}
	)
	if cfg.Development {
		enc = zap.NewDevelopmentEncoderConfig()
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		enc = zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, zap.NewAtomicLevelAt(ParseLevel(cfg.Level)))
	return zap.New(core, opts...).Named("sntrack").Sugar()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return zap.NewNop().Sugar()
}

// ParseLevel converts a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
