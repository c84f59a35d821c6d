package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Logger struct {
	*zap.Logger
}

type Config struct {
	LogLevel    string
	DevMode     bool
	ServiceName string
}

// NewLogger builds a console logger writing to stderr, leaving stdout to
// command output.
func NewLogger(cfg Config) (*Logger, error) {
	var zapCfg zap.Config
	if cfg.DevMode {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.Sampling = nil
		zapCfg.EncoderConfig.TimeKey = ""
		zapCfg.EncoderConfig.LevelKey = "level"
		zapCfg.EncoderConfig.NameKey = ""
		zapCfg.EncoderConfig.CallerKey = ""
		zapCfg.EncoderConfig.StacktraceKey = ""
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	if cfg.LogLevel == "" {
		cfg.LogLevel = LevelError
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}

	return &Logger{Logger: logger}, nil
}

func NewTestLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.Logger.Info(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.Logger.Error(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, fields...)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, fields...)
}
