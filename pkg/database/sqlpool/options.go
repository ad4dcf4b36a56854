package sqlpool

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

// Option 连接池选项
type Option func(*Pool)

// WithLogger 设置日志记录器，连接池会派生 sqlpool.<name> 子 logger
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClassifier 替换默认的可复用判定
func WithClassifier(c *Classifier) Option {
	return func(p *Pool) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithTracer 设置 tracer，默认不采集
func WithTracer(t trace.Tracer) Option {
	return func(p *Pool) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithClock 替换时钟，用于连接存活时间判断
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleep 替换重试等待
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pool) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithRetryHook 每次因连接池耗尽而重试时回调，attempt 从 1 开始
func WithRetryHook(fn func(attempt int)) Option {
	return func(p *Pool) {
		p.retryHook = fn
	}
}
