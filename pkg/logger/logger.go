package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

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

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a LOG_LEVEL value to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
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

// Logger is a printf-style levelled logger on top of zap.
type Logger struct {
	mu     sync.Mutex
	cfg    Config
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
	closer io.Closer
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer

	// FilePath enables a rotating JSON log file next to the console output.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	l := &Logger{cfg: cfg, level: zap.NewAtomicLevelAt(cfg.Level.zapLevel())}
	l.build()
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		level: zap.NewAtomicLevelAt(zapcore.FatalLevel),
		sugar: zap.NewNop().Sugar(),
	}
}

func (l *Logger) build() {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if l.cfg.Colorize {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if l.cfg.ShowTime {
		encCfg.TimeKey = "time"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.cfg.TimeFormat)
	}
	if !l.cfg.ShowCaller {
		encCfg.CallerKey = zapcore.OmitKey
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(l.cfg.Output), l.level),
	}

	if l.cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(l.cfg.FilePath), 0o755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   l.cfg.FilePath,
				MaxSize:    l.cfg.MaxSizeMB,
				MaxBackups: l.cfg.MaxBackups,
				MaxAge:     l.cfg.MaxAgeDays,
				Compress:   l.cfg.Compress,
			}
			fileCfg := encCfg
			fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
			fileCfg.TimeKey = "timestamp"
			fileCfg.EncodeTime = zapcore.RFC3339TimeEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), l.level))
			l.closer = rotator
		}
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	if l.cfg.Prefix != "" {
		base = base.Named(l.cfg.Prefix)
	}
	l.sugar = base.Sugar()
}

// GetLogger returns the process-wide logger configured from LOG_LEVEL and
// LOG_FILE.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		if path := os.Getenv("LOG_FILE"); path != "" {
			cfg.FilePath = path
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Level = level
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.Level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Output = w
	l.build()
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Colorize = colorize
	l.build()
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.ShowCaller = show
	l.build()
}

// Sync flushes buffered entries and closes the rotating file, if any.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.sugar.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) current() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar
}

func (l *Logger) logf(level LogLevel, msg string, args ...any) {
	s := l.current()
	switch level {
	case DEBUG:
		s.Debugf(msg, args...)
	case INFO:
		s.Infof(msg, args...)
	case WARN:
		s.Warnf(msg, args...)
	case ERROR:
		s.Errorf(msg, args...)
	case FATAL:
		s.Fatalf(msg, args...)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...any) {
	l.logf(DEBUG, msg, args...)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...any) {
	l.logf(INFO, msg, args...)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...any) {
	l.logf(WARN, msg, args...)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...any) {
	l.logf(ERROR, msg, args...)
}

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(msg string, args ...any) {
	l.logf(FATAL, msg, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logf(DEBUG, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logf(INFO, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logf(WARN, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logf(ERROR, format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.logf(FATAL, format, args...)
}

// Package-level convenience functions using the default logger

func Debugf(format string, args ...any) {
	GetLogger().logf(DEBUG, format, args...)
}

func Infof(format string, args ...any) {
	GetLogger().logf(INFO, format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().logf(WARN, format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().logf(ERROR, format, args...)
}

func Fatalf(format string, args ...any) {
	GetLogger().logf(FATAL, format, args...)
}

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}
