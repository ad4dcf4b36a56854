package sentry

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

const testDSN = "https://public@sentry.example.com/1"

// recordTransport 记录事件而不发送
type recordTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordTransport) Configure(sentry.ClientOptions) {}

func (t *recordTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordTransport) Flush(time.Duration) bool { return true }

func (t *recordTransport) all() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func newTestClient(t *testing.T) (*Client, *recordTransport) {
	t.Helper()
	tr := &recordTransport{}
	c, err := New(&Config{
		DSN:       testDSN,
		Tags:      map[string]string{"app": "poolbench"},
		Transport: tr,
	})
	require.NoError(t, err)
	return c, tr
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "nil", cfg: nil, want: ErrNilConfig},
		{name: "no dsn", cfg: &Config{}, want: ErrInvalidDSN},
		{name: "sample rate", cfg: &Config{DSN: testDSN, SampleRate: 1.5}, want: ErrInvalidConfig},
		{name: "breadcrumbs", cfg: &Config{DSN: testDSN, MaxBreadcrumbs: -1}, want: ErrInvalidConfig},
		{name: "ok", cfg: &Config{DSN: testDSN, SampleRate: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want))
		})
	}

	assert.False(t, (*Config)(nil).Enabled())
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{DSN: testDSN}).Enabled())
}

func TestCapture(t *testing.T) {
	c, tr := newTestClient(t)

	require.NotNil(t, c.CaptureException(errors.New("broken pipe")))
	require.NotNil(t, c.CaptureMessage("pool closed"))

	events := tr.all()
	require.Len(t, events, 2)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "broken pipe", events[0].Exception[len(events[0].Exception)-1].Value)
	assert.Equal(t, "poolbench", events[0].Tags["app"])
	assert.Equal(t, "pool closed", events[1].Message)

	require.NoError(t, c.Close())
	assert.True(t, errors.Is(c.Close(), ErrClientClosed))
	assert.Nil(t, c.CaptureMessage("after close"))

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.EventsTotal)
	assert.Equal(t, uint64(2), stats.EventsCaptured)
	assert.Equal(t, uint64(1), stats.EventsDropped)
}

func TestLogHook(t *testing.T) {
	c, tr := newTestClient(t)

	buf := &bytes.Buffer{}
	l, err := logger.New(&logger.Config{
		Level:         logger.DebugLevel,
		Format:        logger.JSONFormat,
		SensitiveKeys: []string{"password"},
	}, logger.WithWriter(buf), logger.WithHooks(LogHook(c, zapcore.ErrorLevel)))
	require.NoError(t, err)

	pl := l.Named("sqlpool")
	pl.Warn("retry get connection", "attempt", 1)
	pl.Error("failed to replace connection", "error", errors.New("connection refused"), "pool", "p1", "password", "secret")
	pl.Error("pool closed with errors")

	events := tr.all()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, sentry.LevelError, first.Level)
	assert.Equal(t, "sqlpool", first.Tags["logger"])
	assert.Equal(t, "failed to replace connection", first.Extra["message"])
	assert.Equal(t, "p1", first.Extra["pool"])
	assert.Equal(t, logger.Redacted, first.Extra["password"])
	require.NotEmpty(t, first.Exception)
	assert.Equal(t, "connection refused", first.Exception[len(first.Exception)-1].Value)

	assert.Equal(t, "pool closed with errors", events[1].Message)

	// 日志本身照常输出
	assert.Contains(t, buf.String(), "retry get connection")
	assert.Contains(t, buf.String(), "failed to replace connection")
}
