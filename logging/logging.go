// Package logging builds the zap logger. The terminal belongs to the menu, so
// logs only ever go to a file.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"library-tracker/config"
)

// Setup is a helper function that initializes the logging module. All logs are
// JSON lines appended to cfg.File with ISO8601 timestamps; stacktraces are only
// attached from error level. An empty cfg.File yields a no-op logger.
func Setup(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	if cfg.File == "" {
		return zap.NewNop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logging folder: %w", err)
	}
	logFile, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging file: %w", err)
	}

	zapConfig := zap.NewProductionEncoderConfig()
	zapConfig.TimeKey = "ts"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.LevelKey = "lvl"
	zapConfig.NameKey = "name"
	zapConfig.MessageKey = "msg"
	zapConfig.CallerKey = "caller"
	zapConfig.StacktraceKey = "skt"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), zapcore.AddSync(logFile), cfg.Level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	logger = logger.With(zap.Int("pid", os.Getpid()))

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			log.Println("error during flushing any buffered log entries:", err)
		}
		if err := logFile.Close(); err != nil {
			return fmt.Errorf("[close logs]: %w", err)
		}
		return nil
	}
	return logger, flusher, nil
}
