package sqlpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// fakeError 带类别的驱动错误
type fakeError struct {
	class driver.ErrorClass
	msg   string
}

func (e *fakeError) Error() string { return e.msg }

var (
	errSyntax     = &fakeError{class: driver.ClassProgramming, msg: "You have an error in your SQL syntax"}
	errDuplicate  = &fakeError{class: driver.ClassIntegrity, msg: "Duplicate entry '1' for key 'PRIMARY'"}
	errBrokenPipe = &fakeError{class: driver.ClassIO, msg: "write: broken pipe"}
	errGoneAway   = &fakeError{class: driver.ClassOperational, msg: "MySQL server has gone away"}
	errConnRefuse = &fakeError{class: driver.ClassIO, msg: "connect: connection refused"}
)

// fakeDriver 内存驱动，记录打开与关闭的连接
type fakeDriver struct {
	mu        sync.Mutex
	seq       int
	conns     []*fakeConn
	openErrs  []error
	closeHook func(*fakeConn)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{}
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Open(ctx context.Context) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.openErrs) > 0 {
		err := d.openErrs[0]
		d.openErrs = d.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	d.seq++
	c := &fakeConn{id: d.seq, driver: d}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) Classify(err error) driver.ErrorClass {
	var fe *fakeError
	if errors.As(err, &fe) {
		return fe.class
	}
	return driver.ClassUnknown
}

// failOpens 依次决定接下来几次 Open 的结果，nil 表示成功
func (d *fakeDriver) failOpens(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErrs = append(d.openErrs, errs...)
}

func (d *fakeDriver) setCloseHook(fn func(*fakeConn)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeHook = fn
}

func (d *fakeDriver) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDriver) closed() int {
	d.mu.Lock()
	conns := append([]*fakeConn(nil), d.conns...)
	d.mu.Unlock()

	n := 0
	for _, c := range conns {
		if c.isClosed() {
			n++
		}
	}
	return n
}

func (d *fakeDriver) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// fakeConn 内存连接
type fakeConn struct {
	id     int
	driver *fakeDriver

	mu       sync.Mutex
	pingErr  error
	onPing   func()
	execErr  error
	resetErr error
	closed   bool
	resets   int
	queries  []string
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errBrokenPipe
	}
	if c.onPing != nil {
		c.onPing()
	}
	return c.pingErr
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return driver.Result{}, errBrokenPipe
	}
	c.queries = append(c.queries, query)
	if c.execErr != nil {
		return driver.Result{}, c.execErr
	}
	return driver.Result{RowsAffected: 1}, nil
}

func (c *fakeConn) Query(ctx context.Context, query string, args ...any) (*driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errBrokenPipe
	}
	c.queries = append(c.queries, query)
	if c.execErr != nil {
		return nil, c.execErr
	}
	return &driver.Rows{Columns: []string{"id"}, Values: [][]any{{int64(c.id)}}}, nil
}

func (c *fakeConn) ResetSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	return c.resetErr
}

func (c *fakeConn) Close() error {
	c.driver.mu.Lock()
	hook := c.driver.closeHook
	c.driver.mu.Unlock()
	if hook != nil {
		hook(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) set(fn func(c *fakeConn)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) resetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSleeper 记录等待而不真正睡眠
type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	onCall func(n int)
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	n := len(s.sleeps)
	onCall := s.onCall
	s.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	return ctx.Err()
}

func (s *fakeSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sleeps)
}

// newTestPool 使用 fake 驱动、fake 时钟和 fake 等待创建连接池
func newTestPool(t *testing.T, cfg *Config, opts ...Option) (*Pool, *fakeDriver, *fakeClock, *fakeSleeper) {
	t.Helper()

	drv := newFakeDriver()
	clock := newFakeClock()
	sleeper := &fakeSleeper{}

	if cfg.Name == "" {
		cfg.Name = "test"
	}
	base := []Option{WithClock(clock.Now), WithSleep(sleeper.Sleep)}
	p, err := New(cfg, drv, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p, drv, clock, sleeper
}

// assertInvariant 0 <= available <= total <= max
func assertInvariant(t require.TestingT, p *Pool) {
	s := p.Stats()
	require.GreaterOrEqual(t, s.Available, 0)
	require.LessOrEqual(t, s.Available, s.Total)
	require.LessOrEqual(t, s.Total, s.MaxSize)
}
