package sentry

import (
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

var levels = map[zapcore.Level]sentry.Level{
	zapcore.DebugLevel:  sentry.LevelDebug,
	zapcore.InfoLevel:   sentry.LevelInfo,
	zapcore.WarnLevel:   sentry.LevelWarning,
	zapcore.ErrorLevel:  sentry.LevelError,
	zapcore.DPanicLevel: sentry.LevelFatal,
	zapcore.PanicLevel:  sentry.LevelFatal,
	zapcore.FatalLevel:  sentry.LevelFatal,
}

// LogHook 将不低于 minLevel 的日志上报到 Sentry
// 带 error 字段时按异常上报，其余字段作为 extra
func LogHook(c *Client, minLevel zapcore.Level) logger.Hook {
	return logger.HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if entry.Level < minLevel {
			return true
		}

		enc := zapcore.NewMapObjectEncoder()
		var cause error
		for _, f := range fields {
			if f.Type == zapcore.ErrorType && cause == nil {
				cause, _ = f.Interface.(error)
			}
			f.AddTo(enc)
		}

		c.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(levels[entry.Level])
			if entry.LoggerName != "" {
				scope.SetTag("logger", entry.LoggerName)
			}
			scope.SetExtras(enc.Fields)
			scope.SetExtra("message", entry.Message)
		}, func(h *sentry.Hub) *sentry.EventID {
			if cause != nil {
				return h.CaptureException(cause)
			}
			return h.CaptureMessage(entry.Message)
		})
		return true
	})
}
