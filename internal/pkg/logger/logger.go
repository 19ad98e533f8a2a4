package logger

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// ParseLevel maps a config string to a Level. Unknown strings map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured key/value logging with optional PII redaction.
type Logger struct {
	sugar     *zap.SugaredLogger
	level     zap.AtomicLevel
	redactPII *atomic.Bool
}

var (
	mu            sync.RWMutex
	defaultLogger = newDefault()
)

func redactOn() *atomic.Bool {
	b := new(atomic.Bool)
	b.Store(true)
	return b
}

func newDefault() *Logger {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Sugar(), level: lvl, redactPII: redactOn()}
}

// New wraps an existing zap logger. Tests use zap.NewNop or an observer core.
func New(z *zap.Logger) *Logger {
	return &Logger{sugar: z.WithOptions(zap.AddCallerSkip(2)).Sugar(), level: zap.NewAtomicLevelAt(zapcore.DebugLevel), redactPII: redactOn()}
}

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { current().level.SetLevel(zapLevels[l]) }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { current().redactPII.Store(r) }

// Sync flushes buffered entries.
func Sync() { _ = current().sugar.Sync() }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { current().log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { current().log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { current().log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { current().log(ERROR, msg, fields...) }

// With returns a child logger carrying the given key/value pairs.
func With(fields ...interface{}) *Logger {
	l := current()
	return &Logger{sugar: l.sugar.With(l.redact(fields)...), level: l.level, redactPII: l.redactPII}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	kv := l.redact(fields)
	switch level {
	case DEBUG:
		l.sugar.Debugw(msg, kv...)
	case INFO:
		l.sugar.Infow(msg, kv...)
	case WARN:
		l.sugar.Warnw(msg, kv...)
	default:
		l.sugar.Errorw(msg, kv...)
	}
}

// redact stringifies values and masks PII. A trailing key without a value is dropped.
func (l *Logger) redact(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fields[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		if s, ok := val.(string); ok && l.redactPII.Load() {
			val = redactPIIValue(key, s)
		}
		out = append(out, key, val)
	}
	return out
}
