// Package logging provides the process-wide structured logger. The teacher
// repo gates a hand-rolled stderr writer behind GASOLINE_DEBUG; pwgo keeps
// the same env-driven gate but backs it with go.uber.org/zap, the
// structured-logging dependency attested by codeready-toolchain-tarsy and
// sanket-sapate-arc-core's go-core package.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	levelEnv  = "PWGO_LOG_LEVEL"
	formatEnv = "PWGO_LOG_FORMAT"
)

var (
	once   sync.Once
	logger *zap.SugaredLogger
)

// L returns the process-wide sugared logger, constructing it lazily from
// PWGO_LOG_LEVEL (debug|info|warn|error, default info) and PWGO_LOG_FORMAT
// (json|console, default console).
func L() *zap.SugaredLogger {
	once.Do(func() {
		logger = build().Sugar()
	})
	return logger
}

func build() *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnv))) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(strings.TrimSpace(os.Getenv(formatEnv)), "json") {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
