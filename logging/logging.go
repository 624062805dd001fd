// Package logging configures the process-wide zap logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zap.NewNop().Sugar()

type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Init builds the global logger. Logs always go to stdout; a file sink with
// rotation is added when configured.
func Init(config Config) {
	level := zapcore.InfoLevel
	if config.Level != "" {
		if parsed, err := zapcore.ParseLevel(config.Level); err == nil {
			level = parsed
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if config.File != "" {
		maxSize := config.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := config.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	logger = zap.New(core, zap.AddCaller()).Sugar()
}

// L returns the process logger. Safe before Init; logs are dropped until then.
func L() *zap.SugaredLogger {
	return logger
}

func Sync() {
	_ = logger.Sync()
}
