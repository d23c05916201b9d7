package log

import (
	"log/slog"
)

// CronAdapter реализует интерфейс cron.Logger из robfig/cron/v3.
type CronAdapter struct {
	Logger *slog.Logger
}

// Info пишет служебные сообщения планировщика на уровне Debug: они повторяются каждый тик.
func (a *CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.Logger.Debug(msg, append(keysAndValues, "source", "cron")...)
}

func (a *CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.Logger.Error(msg, append(keysAndValues, "source", "cron", "error", err)...)
}

// RetryableHTTPAdapter реализует retryablehttp.LeveledLogger.
type RetryableHTTPAdapter struct {
	Logger *slog.Logger
}

func (a *RetryableHTTPAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.Logger.Error(msg, keysAndValues...)
}

func (a *RetryableHTTPAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.Logger.Debug(msg, keysAndValues...)
}

func (a *RetryableHTTPAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.Logger.Debug(msg, keysAndValues...)
}

func (a *RetryableHTTPAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.Logger.Warn(msg, keysAndValues...)
}

// ParseLevel переводит строковый уровень из конфигурации в slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
