// Package logger provides process-wide structured logging for tickersync.
// Info and above are printed by default. Enabling verbose mode via the
// --verbose flag lowers the level to debug so operators can follow each
// entity through fetch, reconcile and commit.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and optional rotating file output.
type Config struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu        sync.RWMutex
	verbose   bool
	baseLevel = logrus.InfoLevel
	output    io.Writer = os.Stderr
	rotator   *lumberjack.Logger
	log       = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure applies cfg. An empty level keeps info, an empty format keeps text.
func Configure(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}
	baseLevel = level
	if !verbose {
		log.SetLevel(level)
	}

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(output, rotator))
	} else {
		log.SetOutput(output)
	}
	return nil
}

// Close releases the rotating log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	log.SetOutput(output)
	return err
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(baseLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if rotator != nil {
		log.SetOutput(io.MultiWriter(w, rotator))
		return
	}
	log.SetOutput(w)
}

// Logger returns the underlying logrus logger.
func Logger() *logrus.Logger {
	return log
}

// WithComponent returns an entry tagged with a component name.
func WithComponent(component string) *logrus.Entry {
	return log.WithField("component", component)
}

// WithSymbol returns an entry tagged with an entity symbol.
func WithSymbol(symbol string) *logrus.Entry {
	return log.WithField("symbol", symbol)
}

// WithFields returns an entry carrying fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Debug logs at debug level. Only printed in verbose mode.
func Debug(format string, args ...any) {
	log.Debugf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	log.Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	log.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	log.Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	log.Errorf(format, args...)
}
