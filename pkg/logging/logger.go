package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging for imagegen components.
// All component loggers share one rotating file in ~/.imagegen/logs/ (or the
// directory passed to Configure). Nothing is ever written to stdout because
// stdout carries the MCP transport.
type Logger struct {
	sessionID string
	component string
	sugar     *zap.SugaredLogger
	writer    io.Writer
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error

	// level is shared by every component logger so it can be changed at runtime
	level = zap.NewAtomicLevelAt(zap.InfoLevel)

	// shared file sink, created lazily by the first NewLogger call
	sinkMu   sync.Mutex
	sinkFile *lumberjack.Logger
	sinkPath string
)

const (
	maxLogSizeMB  = 20
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Configure sets the log directory and level. It must be called before the
// first NewLogger call for the directory to take effect; the level can be
// changed at any time.
func Configure(dir, lvl string) error {
	if lvl != "" {
		if err := SetLevel(lvl); err != nil {
			return err
		}
	}
	if dir != "" {
		logDir = dir
	}
	return nil
}

// SetLevel changes the minimum level for all loggers.
func SetLevel(lvl string) error {
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	return nil
}

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".imagegen", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// openSink returns the rotating file shared by all components.
func openSink() (*lumberjack.Logger, string, error) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if sinkFile != nil {
		return sinkFile, sinkPath, nil
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s-imagegen.log", getSessionID()))

	// lumberjack opens lazily; touch the file so a bad path fails here instead of on first write
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	f.Close()

	sinkFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
	sinkPath = path
	return sinkFile, sinkPath, nil
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <log dir>/<session-id>-imagegen.log
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
// Callers can check the error to detect fallback mode and log warnings.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sink, path, err := openSink()
	if err != nil {
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sugar:     newZap(zapcore.AddSync(sink)).Named(component).Sugar(),
		writer:    sink,
		logPath:   path,
	}, nil
}

// Nop returns a logger that discards everything. Useful in tests and for
// optional dependencies.
func Nop() *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: "nop",
		sugar:     zap.NewNop().Sugar(),
		writer:    io.Discard,
	}
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	sugar := newZap(zapcore.Lock(os.Stderr)).Named(component).Sugar()
	sugar.Warnf("failed to initialize file logging: %v", err)
	sugar.Warnf("falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sugar:     sugar,
		writer:    os.Stderr,
	}
}

// newZap builds a console-encoded zap logger producing lines of the form
// "[2006-01-02 15:04:05.000] [LEVEL] [component] message".
func newZap(ws zapcore.WriteSyncer) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format("2006-01-02 15:04:05.000") + "]")
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	return zap.New(core)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		sugar:     l.sugar.With(keysAndValues...),
		writer:    l.writer,
		logPath:   l.logPath,
	}
}

// Writer returns an io.Writer that writes to this logger's sink
func (l *Logger) Writer() io.Writer {
	return l.writer
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes buffered entries. Safe to call multiple times. The shared
// file itself is closed by Shutdown.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		_ = l.sugar.Sync()
	})
	return nil
}

// Shutdown closes the shared log file.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if sinkFile == nil {
		return nil
	}
	err := sinkFile.Close()
	sinkFile = nil
	sinkPath = ""
	return err
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
