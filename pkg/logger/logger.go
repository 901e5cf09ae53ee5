package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config 控制日志级别与输出格式。
type Config struct {
	Level     string // debug / info / warn / error
	Format    string // json / text
	Component string
}

// Logger 包装 slog.Logger，额外提供按组件派生子 logger。
type Logger struct {
	*slog.Logger
}

// New 按配置创建 logger，输出到 stdout。
func New(cfg Config) *Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter 同 New，但允许指定输出（测试里写 io.Discard）。
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(h)
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return &Logger{Logger: l}
}

// Nop 丢弃所有输出。
func Nop() *Logger {
	return NewWithWriter(Config{Level: "error"}, io.Discard)
}

// WithComponent 派生带 component 字段的子 logger。
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// With 派生带额外字段的子 logger。
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
