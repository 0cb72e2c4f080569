package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

// LogFormatter renders entries as "timestamp [LEVEL] message".
type LogFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

// Format formats an entry in the custom format.
func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := f.LevelDesc[entry.Level]
	msg := fmt.Sprintf("%s [%s] %s\n", timestamp, level, entry.Message)
	return []byte(msg), nil
}

// Init configures logrus with the custom formatter, the requested level,
// and hourly-rotated log files under dir. Falls back to stderr when the
// log directory cannot be prepared.
func Init(level, dir string) {
	log.SetFormatter(&LogFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"},
	})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warnf("cannot create log directory %s, logging to stderr: %v", dir, err)
		return
	}

	rl, err := rotatelogs.New(
		filepath.Join(dir, "%Y-%m-%d-%H.log"),
		rotatelogs.WithLinkName(filepath.Join(dir, "current.log")),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		log.Warnf("cannot initialize log rotation, logging to stderr: %v", err)
		return
	}
	log.SetOutput(rl)
}

// Info logs an informational message.
func Info(message string) { log.Info(message) }

// Warn logs a warning message.
func Warn(message string) { log.Warn(message) }

// Error logs an error message.
func Error(message string) { log.Error(message) }

// Debug logs a debug message.
func Debug(message string) { log.Debug(message) }

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
