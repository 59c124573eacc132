// Package logger holds the process-wide zap logger. The REPL owns
// stdout for command results, so log output goes to stderr, plus a
// size-rotated file when a log directory is configured.
package logger

import (
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log stays a nop until Init runs, so library code can log
// unconditionally and tests need no setup.
var log = zap.NewNop()

const (
	fileName       = "kvstore.log"
	fileMaxSizeMb  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 7
)

// Init replaces the package logger with a real one. levelName is a zap
// level name ("debug", "info", ...); an unrecognized name degrades to
// info rather than refusing to boot. output is the directory the
// rotated log file goes to, or empty for stderr only.
func Init(levelName, output string) {
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		level = zapcore.InfoLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.AddSync(os.Stderr),
		level,
	)}

	if output != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "timestamp"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   filepath.Join(output, fileName),
				MaxSize:    fileMaxSizeMb,
				MaxBackups: fileMaxBackups,
				MaxAge:     fileMaxAgeDays,
			}),
			level,
		))
	}

	log = zap.New(zapcore.NewTee(cores...))
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}
