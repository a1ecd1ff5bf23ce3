package dbg

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func build(cfg zap.Config, level zapcore.Level) *zap.Logger {
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// NewDevLogger logs at debug level to the console. Waveform monitoring is only visible
// at this level.
func NewDevLogger() *zap.Logger {
	return build(zap.NewDevelopmentConfig(), zapcore.DebugLevel)
}

// NewProdLogger logs json at info level.
func NewProdLogger() *zap.Logger {
	return build(zap.NewProductionConfig(), zapcore.InfoLevel)
}

// NewLogger picks the logger for a command. Quiet raises the dev logger to info so the
// per-sample monitor output goes away.
func NewLogger(prod, quiet bool) *zap.Logger {
	switch {
	case prod:
		return NewProdLogger()
	case quiet:
		return build(zap.NewDevelopmentConfig(), zapcore.InfoLevel)
	}
	return NewDevLogger()
}
