package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger - интерфейс логгера, используемый во всех слоях приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	With(key string, value any) Logger
	Sync() error
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger создаёт JSON-логгер для stdout с полем service.
// Уровень задаётся переменной LOG_LEVEL (debug, info, warn, error).
func NewZapLogger(service string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	cfg.InitialFields = map[string]any{
		"service": service,
	}

	l, err := cfg.Build()
	if err != nil {
		panic(fmt.Errorf("build zap logger: %w", err))
	}

	return &zapLogger{l: l.Sugar()}
}

// NewNop возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.l.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.l.Warnf(format, args...)
}

func (z *zapLogger) Errorf(err error, format string, args ...any) {
	z.l.With("error", err).Errorf(format, args...)
}

func (z *zapLogger) With(key string, value any) Logger {
	return &zapLogger{l: z.l.With(key, value)}
}

// Sync сбрасывает буферизованные записи. Вызывается при завершении.
func (z *zapLogger) Sync() error {
	return z.l.Sync()
}
