package sentry

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
)

// Client Sentry 客户端，使用独立的 Hub
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		eventsTotal    atomic.Uint64
		eventsCaptured atomic.Uint64
		eventsDropped  atomic.Uint64
	}
}

// Stats 统计信息
type Stats struct {
	EventsTotal    uint64
	EventsCaptured uint64
	EventsDropped  uint64 // 采样丢弃或客户端已关闭
}

// New 创建 Sentry 客户端，cfg 可以只包含部分字段
func New(cfg *Config) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "sentry: failed to merge config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	client, err := sentry.NewClient(merged.toClientOptions())
	if err != nil {
		return nil, errors.Wrap(err, "sentry: failed to create client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range merged.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: merged}, nil
}

// CaptureException 上报错误
func (c *Client) CaptureException(err error) *sentry.EventID {
	return c.capture(func(h *sentry.Hub) *sentry.EventID {
		return h.CaptureException(err)
	})
}

// CaptureMessage 上报消息
func (c *Client) CaptureMessage(message string) *sentry.EventID {
	return c.capture(func(h *sentry.Hub) *sentry.EventID {
		return h.CaptureMessage(message)
	})
}

// WithScope 在独立的 scope 中上报，不影响其他调用方
func (c *Client) WithScope(configure func(scope *sentry.Scope), fn func(h *sentry.Hub) *sentry.EventID) *sentry.EventID {
	return c.capture(func(h *sentry.Hub) *sentry.EventID {
		h = h.Clone()
		h.ConfigureScope(configure)
		return fn(h)
	})
}

func (c *Client) capture(fn func(h *sentry.Hub) *sentry.EventID) *sentry.EventID {
	c.stats.eventsTotal.Add(1)
	if c.closed.Load() {
		c.stats.eventsDropped.Add(1)
		return nil
	}

	eventID := fn(c.hub)
	if eventID != nil && *eventID != "" {
		c.stats.eventsCaptured.Add(1)
	} else {
		c.stats.eventsDropped.Add(1)
	}
	return eventID
}

// Hub 底层 Hub
func (c *Client) Hub() *sentry.Hub {
	return c.hub
}

// Flush 等待事件发送完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 发送剩余事件后关闭
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

// Stats 获取统计信息
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.stats.eventsTotal.Load(),
		EventsCaptured: c.stats.eventsCaptured.Load(),
		EventsDropped:  c.stats.eventsDropped.Load(),
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
