package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var L *zap.Logger

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func init() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = level
	if lvl, ok := parseLevel(os.Getenv("LOG_LEVEL")); ok {
		level.SetLevel(lvl)
	}
	var err error
	L, err = config.Build()
	if err != nil {
		panic(err)
	}
}

// SetLevel changes the level of every logger derived from L. Unknown names are ignored.
func SetLevel(name string) {
	if lvl, ok := parseLevel(name); ok {
		level.SetLevel(lvl)
	}
}

// WithComponent returns a logger tagged with the component field (booking, waitlist, mq, handler, ...).
func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}

// Sync flushes buffered entries; call it once on shutdown.
func Sync() {
	_ = L.Sync()
}

func parseLevel(name string) (zapcore.Level, bool) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}
