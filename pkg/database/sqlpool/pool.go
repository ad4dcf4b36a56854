package sqlpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

const tracerName = "github.com/lk2023060901/xdooria-sqlpool/pkg/database/sqlpool"

// session 连接池持有的物理连接
type session struct {
	raw       driver.Conn
	id        string
	createdAt time.Time
}

type counters struct {
	created   atomic.Int64
	discarded atomic.Int64
	replaced  atomic.Int64
	borrowed  atomic.Int64
	returned  atomic.Int64
	retries   atomic.Int64
	exhausted atomic.Int64
}

// Stats 连接池快照
type Stats struct {
	Total     int
	Available int
	MaxSize   int

	Created   int64 // 打开的物理连接数
	Discarded int64 // 因过期、Ping 失败、不可复用或关闭而丢弃
	Replaced  int64 // 丢弃后补充的连接数
	Borrowed  int64
	Returned  int64
	Retries   int64 // 因耗尽而等待重试的次数
	Exhausted int64 // 重试用尽失败的次数
}

// Pool 数据库连接池
//
// idle 和 total 只在 mu 保护下修改，检查容量与占位在同一临界区完成；
// 打开、Ping、关闭物理连接都在锁外进行，此时连接已从 idle 取出或已占位，
// 不会被其他借用方看到。
type Pool struct {
	cfg        *Config
	drv        driver.Driver
	classifier *Classifier
	logger     logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	retryHook  func(attempt int)

	mu     sync.Mutex
	idle   []*session // LIFO，栈顶为最近归还的连接
	total  int
	closed bool

	stats counters
}

// Open 按 cfg.DB.Driver 从注册表取驱动并创建连接池
func Open(cfg *Config, opts ...Option) (*Pool, error) {
	if cfg == nil {
		return nil, misuse(ErrInvalidConfig, "config is nil")
	}
	if err := validator().Validate(&cfg.DB); err != nil {
		return nil, misuse(ErrInvalidConfig, "db: %v", err)
	}
	drv, err := driver.Open(&cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, "sqlpool: open driver")
	}
	return New(cfg, drv, opts...)
}

// New 创建连接池并同步预建 PreCreateNum 个连接，任一失败则整体失败
func New(cfg *Config, drv driver.Driver, opts ...Option) (*Pool, error) {
	if drv == nil {
		return nil, misuse(ErrInvalidConfig, "driver is nil")
	}
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:    merged,
		drv:    drv,
		logger: logger.NewNoop(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifier == nil {
		p.classifier = NewClassifier(drv.Classify)
	}
	p.logger = p.logger.Named("sqlpool").Named(merged.Name)

	if err := p.preCreate(context.Background()); err != nil {
		return nil, err
	}

	p.logger.Info("pool created",
		"driver", drv.Name(),
		"db", merged.DB.String(),
		"size", merged.Size,
		"max_size", merged.MaxSize,
		"pre_create_num", merged.PreCreateNum,
		"conn_lifetime", merged.Lifetime(),
		"pre_ping", merged.PrePing,
	)
	return p, nil
}

func (p *Pool) preCreate(ctx context.Context) error {
	n := p.cfg.PreCreateNum
	sessions := make([]*session, 0, n)
	for i := 0; i < n; i++ {
		s, err := p.open(ctx)
		if err != nil {
			for _, s := range sessions {
				p.closeSession(s)
			}
			return errors.Wrapf(err, "sqlpool: pre-create connection %d/%d for %s", i+1, n, p.cfg.Name)
		}
		sessions = append(sessions, s)
	}

	p.mu.Lock()
	p.idle = sessions
	p.total = len(sessions)
	p.mu.Unlock()
	return nil
}

// Get 使用配置中的 RetryNum 和 RetryInterval 获取连接
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	return p.GetConnection(ctx, p.cfg.Retries(), p.cfg.RetryInterval)
}

// GetConnection 获取连接
//
// 优先复用最近归还的空闲连接，过期或 Ping 失败的连接直接丢弃且不消耗重试次数；
// 没有空闲连接且未达 MaxSize 时新建；否则等待 retryInterval 后重试，
// 最多 retryNum 次（上限 MaxRetryNum），仍失败返回 *ExhaustedError。
func (p *Pool) GetConnection(ctx context.Context, retryNum int, retryInterval time.Duration) (*Conn, error) {
	retryNum = clampRetry(retryNum)

	ctx, span := p.tracer.Start(ctx, "sqlpool.GetConnection", trace.WithAttributes(
		attribute.String("sqlpool.pool", p.cfg.Name),
		attribute.Int("sqlpool.retry_num", retryNum),
	))
	defer span.End()

	conn, err := p.getConnection(ctx, span, retryNum, retryInterval)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("sqlpool.conn", conn.ID()))
	return conn, nil
}

func (p *Pool) getConnection(ctx context.Context, span trace.Span, retryNum int, retryInterval time.Duration) (*Conn, error) {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "sqlpool: get connection")
		}

		s, reserved, err := p.take()
		if err != nil {
			return nil, err
		}

		if s != nil {
			ok, err := p.check(ctx, s)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			return p.lend(ctx, s, false)
		}

		if reserved {
			s, err := p.open(ctx)
			if err != nil {
				p.unreserve()
				return nil, errors.Wrapf(err, "sqlpool: open connection for %s", p.cfg.Name)
			}
			return p.lend(ctx, s, true)
		}

		if retries >= retryNum {
			p.stats.exhausted.Add(1)
			p.logger.WarnContext(ctx, "pool exhausted",
				"retries", retries,
				"total", p.TotalNum(),
				"max_size", p.cfg.MaxSize,
			)
			return nil, &ExhaustedError{Pool: p.cfg.Name, Retries: retries}
		}

		retries++
		p.stats.retries.Add(1)
		p.logger.InfoContext(ctx, "retry get connection", "attempt", retries, "retry_num", retryNum, "interval", retryInterval)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("sqlpool.attempt", retries)))
		if p.retryHook != nil {
			p.retryHook(retries)
		}

		if err := p.sleep(ctx, retryInterval); err != nil {
			return nil, errors.Wrap(err, "sqlpool: wait for connection")
		}
	}
}

// take 一次借用尝试的临界区：弹出空闲连接，或在容量内占位
func (p *Pool) take() (s *session, reserved bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		s = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		return s, false, nil
	}
	if p.total < p.cfg.MaxSize {
		p.total++
		return nil, true, nil
	}
	return nil, false, nil
}

func (p *Pool) unreserve() {
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

// check 校验刚弹出的空闲连接，不可用时丢弃并返回 false
func (p *Pool) check(ctx context.Context, s *session) (bool, error) {
	if p.expired(s) {
		p.discard(ctx, s, "expired", nil)
		return false, nil
	}
	if !p.cfg.PrePing {
		return true, nil
	}

	if err := s.raw.Ping(ctx); err != nil {
		// 调用方取消时连接本身未必有问题
		if ctx.Err() != nil {
			p.putIdle(s)
			return false, errors.Wrap(ctx.Err(), "sqlpool: get connection")
		}
		p.discard(ctx, s, "ping failed", err)
		return false, nil
	}
	return true, nil
}

func (p *Pool) lend(ctx context.Context, s *session, fresh bool) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.total--
		p.mu.Unlock()
		p.closeSession(s)
		return nil, ErrPoolClosed
	}
	total, available := p.total, len(p.idle)
	p.mu.Unlock()

	c := &Conn{pool: p, sess: s}
	c.inUse.Store(true)
	p.stats.borrowed.Add(1)

	p.logger.DebugContext(ctx, "connection retrieved",
		"conn", s.id,
		"fresh", fresh,
		"total", total,
		"available", available,
	)
	return c, nil
}

// PutConnection 归还连接
//
// cause 为使用期间的最后一个错误。nil 或可复用错误时重置会话后放回空闲栈，
// 否则关闭并在不超过 MaxSize 的前提下补充一个新连接。
// 返回值只报告误用，cause 本身由调用方自行处理。
func (p *Pool) PutConnection(conn *Conn, cause error) error {
	if conn == nil || conn.pool != p {
		return misuse(ErrForeignConn, "pool %s", p.cfg.Name)
	}
	if !conn.inUse.CompareAndSwap(true, false) {
		return misuse(ErrConnReleased, "conn %s", conn.ID())
	}
	p.stats.returned.Add(1)

	ctx := context.Background()
	s := conn.sess

	if p.isClosed() {
		p.discard(ctx, s, "pool closed", cause)
		return nil
	}

	if !p.classifier.Reusable(cause) {
		p.discard(ctx, s, "not reusable", cause)
		p.replenish(ctx, p.cfg.MaxSize)
		return nil
	}

	if err := p.resetSession(ctx, s); err != nil {
		p.discard(ctx, s, "reset session failed", err)
		p.replenish(ctx, p.cfg.MaxSize)
		return nil
	}

	// 归还时已过期则退休，只补到 Size，让连接数回落
	if p.expired(s) {
		p.discard(ctx, s, "expired", nil)
		p.replenish(ctx, p.cfg.Size)
		return nil
	}

	if p.putIdle(s) {
		p.logger.Debug("connection returned", "conn", s.id, "error", cause)
	}
	return nil
}

func (p *Pool) resetSession(ctx context.Context, s *session) error {
	if rs, ok := s.raw.(driver.SessionResetter); ok {
		return rs.ResetSession(ctx)
	}
	return nil
}

// putIdle 放回空闲栈，连接池已关闭时关闭连接并返回 false
func (p *Pool) putIdle(s *session) bool {
	p.mu.Lock()
	if p.closed {
		p.total--
		p.mu.Unlock()
		p.closeSession(s)
		return false
	}
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	return true
}

// discard 释放 s 占用的名额并关闭物理连接
func (p *Pool) discard(ctx context.Context, s *session, reason string, cause error) {
	p.mu.Lock()
	p.total--
	total := p.total
	p.mu.Unlock()

	p.stats.discarded.Add(1)
	fields := []interface{}{"conn", s.id, "reason", reason, "total", total}
	if cause != nil {
		fields = append(fields, "error", cause, "class", p.classifier.Class(cause).String())
	}
	p.logger.InfoContext(ctx, "connection discarded", fields...)

	p.closeSession(s)
}

// replenish total 低于 limit 时补充一个空闲连接
// 丢弃与补充之间名额可能已被借用方占用，此时不补充
func (p *Pool) replenish(ctx context.Context, limit int) {
	p.mu.Lock()
	if p.closed || p.total >= limit {
		total := p.total
		p.mu.Unlock()
		p.logger.Debug("connection not replaced", "total", total, "limit", limit)
		return
	}
	p.total++
	p.mu.Unlock()

	s, err := p.open(ctx)
	if err != nil {
		p.unreserve()
		p.logger.Error("connection replace failed", "error", err)
		return
	}
	if !p.putIdle(s) {
		return
	}

	p.stats.replaced.Add(1)
	p.logger.Info("connection replaced", "conn", s.id, "total", p.TotalNum())
}

func (p *Pool) open(ctx context.Context) (*session, error) {
	raw, err := p.drv.Open(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{raw: raw, id: uuid.NewString(), createdAt: p.now()}
	p.stats.created.Add(1)
	p.logger.InfoContext(ctx, "connection created", "conn", s.id)
	return s, nil
}

func (p *Pool) closeSession(s *session) {
	if err := s.raw.Close(); err != nil {
		p.logger.Warn("close connection failed", "conn", s.id, "error", err)
	}
}

func (p *Pool) expired(s *session) bool {
	return p.cfg.LifetimeEnabled() && p.now().Sub(s.createdAt) > p.cfg.Lifetime()
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close 关闭空闲连接，之后的借用返回 ErrPoolClosed，借出的连接在归还时关闭
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	inUse := p.total
	p.mu.Unlock()

	var errs error
	for _, s := range idle {
		if err := s.raw.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "close %s", s.id))
		}
	}
	p.stats.discarded.Add(int64(len(idle)))

	p.logger.Info("pool closed", "closed", len(idle), "in_use", inUse)
	return errs
}

// Name 连接池名称
func (p *Pool) Name() string {
	return p.cfg.Name
}

// Config 生效的配置（已合并默认值）
func (p *Pool) Config() Config {
	return *p.cfg
}

// TotalNum 连接池持有的连接数（空闲 + 借出）
func (p *Pool) TotalNum() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// AvailableNum 空闲连接数
func (p *Pool) AvailableNum() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	total, available := p.total, len(p.idle)
	p.mu.Unlock()

	return Stats{
		Total:     total,
		Available: available,
		MaxSize:   p.cfg.MaxSize,
		Created:   p.stats.created.Load(),
		Discarded: p.stats.discarded.Load(),
		Replaced:  p.stats.replaced.Load(),
		Borrowed:  p.stats.borrowed.Load(),
		Returned:  p.stats.returned.Load(),
		Retries:   p.stats.retries.Load(),
		Exhausted: p.stats.exhausted.Load(),
	}
}

func clampRetry(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxRetryNum:
		return MaxRetryNum
	default:
		return n
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
