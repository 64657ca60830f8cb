package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Fields are key/value pairs appended to a log line.
type Fields map[string]interface{}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to LogLevel, defaulting to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

type Logger struct {
	level      LogLevel
	output     string
	logDir     string
	currentLog *os.File
	writer     io.Writer
	mu         sync.RWMutex
	started    time.Time
}

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

// InitLogger (re)builds the global logger from the logging.* keys.
func InitLogger() error {
	logger, err := NewLogger()
	if err != nil {
		return err
	}

	globalMu.Lock()
	old := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// GetLogger returns the global logger, falling back to INFO on stdout when
// InitLogger has not run.
func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		globalLogger = NewBasicLogger()
	}
	return globalLogger
}

// NewLogger creates a logger from viper settings.
func NewLogger() (*Logger, error) {
	logDir := viper.GetString("logging.path")
	if logDir == "" {
		logDir = "logs"
	}

	logger := &Logger{
		level:   ParseLogLevel(viper.GetString("logging.level")),
		output:  viper.GetString("logging.output"),
		logDir:  logDir,
		started: time.Now(),
	}

	if logger.output == "file" || logger.output == "both" {
		if err := logger.createLogFile(); err != nil {
			return nil, fmt.Errorf("failed to setup logger output: %w", err)
		}
	}

	return logger, nil
}

func NewBasicLogger() *Logger {
	return &Logger{
		level:   INFO,
		output:  "stdout",
		started: time.Now(),
	}
}

// NewWriterLogger logs to w only. Used by tests and embedding programs.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{level: level, writer: w, started: time.Now()}
}

// SetLogger replaces the global logger.
func SetLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// createLogFile opens <logDir>/<date>/<time>.log
func (l *Logger) createLogFile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dateDir := l.started.Format("2006-01-02")
	timeFile := l.started.Format("15-04-05") + ".log"

	fullDir := filepath.Join(l.logDir, dateDir)
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(fullDir, timeFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if l.currentLog != nil {
		l.currentLog.Close()
	}
	l.currentLog = file
	return nil
}

func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) getWriter() io.Writer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.writer != nil {
		return l.writer
	}

	switch l.output {
	case "file":
		if l.currentLog != nil {
			return l.currentLog
		}
	case "both":
		if l.currentLog != nil {
			return io.MultiWriter(os.Stdout, l.currentLog)
		}
	}
	return os.Stdout
}

// formatText renders "<time> [LEVEL] msg | k=v ..." with keys sorted.
func formatText(timestamp string, level LogLevel, msg string, fields Fields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", timestamp, level.String(), msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, fields Fields) {
	if level < l.Level() {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintln(l.getWriter(), formatText(timestamp, level, msg, fields))

	if level == FATAL {
		os.Exit(1)
	}
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(DEBUG, msg, first(fields)) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(INFO, msg, first(fields)) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(WARN, msg, first(fields)) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(ERROR, msg, first(fields)) }
func (l *Logger) Fatal(msg string, fields ...Fields) { l.log(FATAL, msg, first(fields)) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.Fatal(fmt.Sprintf(format, args...)) }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentLog != nil {
		err := l.currentLog.Close()
		l.currentLog = nil
		return err
	}
	return nil
}

// Global convenience functions

func Debug(msg string, fields ...Fields) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { GetLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...Fields) { GetLogger().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { GetLogger().Fatalf(format, args...) }
