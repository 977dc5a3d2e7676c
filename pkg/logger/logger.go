// Package logger provides the process-wide structured logger for the gateway.
package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var singleton atomic.Pointer[zap.SugaredLogger]

func init() {
	singleton.Store(newLogger(unstructuredLogs(), levelFromEnv()))
}

// Initialize (re)configures the singleton logger from the environment. It is
// safe to call more than once; the CLI calls it from PersistentPreRun so that
// flags parsed by cobra/viper are reflected before any subcommand runs.
func Initialize() {
	level := levelFromEnv()
	if viper.GetBool("debug") {
		level = zapcore.DebugLevel
	}
	singleton.Store(newLogger(unstructuredLogs(), level))
}

// Get returns the current singleton logger.
func Get() *zap.SugaredLogger {
	return singleton.Load()
}

func newLogger(unstructured bool, level zapcore.Level) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if unstructured {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(consoleCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// unstructuredLogs reads UNSTRUCTURED_LOGS: anything other than the
// literal string "false" keeps the human-readable console encoder.
func unstructuredLogs() bool {
	return os.Getenv("UNSTRUCTURED_LOGS") != "false"
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

// Debug logs at debug level.
func Debug(args ...any) { Get().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...any) { Get().Debugf(template, args...) }

// Debugw logs a message with key-value pairs at debug level.
func Debugw(msg string, kv ...any) { Get().Debugw(msg, kv...) }

// Info logs at info level.
func Info(args ...any) { Get().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...any) { Get().Infof(template, args...) }

// Infow logs a message with key-value pairs at info level.
func Infow(msg string, kv ...any) { Get().Infow(msg, kv...) }

// Warn logs at warn level.
func Warn(args ...any) { Get().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...any) { Get().Warnf(template, args...) }

// Warnw logs a message with key-value pairs at warn level.
func Warnw(msg string, kv ...any) { Get().Warnw(msg, kv...) }

// Error logs at error level.
func Error(args ...any) { Get().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...any) { Get().Errorf(template, args...) }

// Errorw logs a message with key-value pairs at error level.
func Errorw(msg string, kv ...any) { Get().Errorw(msg, kv...) }

// Panic logs at panic level then panics.
func Panic(args ...any) { Get().Panic(args...) }

// Panicf logs a formatted message at panic level then panics.
func Panicf(template string, args ...any) { Get().Panicf(template, args...) }
