package sqlpool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// Conn 从连接池借出的连接
//
// 每次借用得到一个新的 Conn，归还后该 Conn 上的任何操作都返回 ErrConnReleased，
// 即使底层物理连接已被其他借用方取走。Conn 不是并发安全的。
type Conn struct {
	pool    *Pool
	sess    *session
	inUse   atomic.Bool
	lastErr error
}

// ID 物理连接 ID，同一物理连接多次借出时不变
func (c *Conn) ID() string {
	return c.sess.id
}

// CreatedAt 物理连接打开时间
func (c *Conn) CreatedAt() time.Time {
	return c.sess.createdAt
}

// Raw 底层物理连接，绕过连接池直接使用时错误不会被记录
func (c *Conn) Raw() driver.Conn {
	return c.sess.raw
}

// InUse 是否仍处于借出状态
func (c *Conn) InUse() bool {
	return c.inUse.Load()
}

// Err 最近一次操作返回的错误
func (c *Conn) Err() error {
	return c.lastErr
}

// Exec 执行写语句
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	if !c.inUse.Load() {
		return driver.Result{}, misuse(ErrConnReleased, "exec on conn %s", c.ID())
	}
	res, err := c.sess.raw.Exec(ctx, query, args...)
	c.lastErr = err
	return res, err
}

// Query 执行查询
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*driver.Rows, error) {
	if !c.inUse.Load() {
		return nil, misuse(ErrConnReleased, "query on conn %s", c.ID())
	}
	rows, err := c.sess.raw.Query(ctx, query, args...)
	c.lastErr = err
	return rows, err
}

// Ping 探测连接
func (c *Conn) Ping(ctx context.Context) error {
	if !c.inUse.Load() {
		return misuse(ErrConnReleased, "ping on conn %s", c.ID())
	}
	err := c.sess.raw.Ping(ctx)
	c.lastErr = err
	return err
}

// Release 以 cause 为结果归还连接，只能调用一次
func (c *Conn) Release(cause error) error {
	return c.pool.PutConnection(c, cause)
}

// Close 归还连接而不是关闭物理连接，使用最近一次操作的错误判断能否复用
func (c *Conn) Close() error {
	return c.Release(c.lastErr)
}

// WithConnection 借用连接执行 fn，结束时按 fn 的结果归还且只归还一次
// fn 发生 panic 时连接按不可复用归还后继续 panic；fn 的错误原样返回
func WithConnection(ctx context.Context, p *Pool, fn func(*Conn) error) error {
	c, err := p.Get(ctx)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			p.settle(c, ErrPanicked)
		}
	}()

	err = fn(c)
	done = true

	p.settle(c, err)
	return err
}

// settle 归还连接，fn 内部已经归还时忽略 ErrConnReleased，其余错误记录日志
func (p *Pool) settle(c *Conn, cause error) {
	err := p.PutConnection(c, cause)
	if err == nil || errors.Is(err, ErrConnReleased) {
		return
	}
	p.logger.Warn("release connection failed", "conn", c.ID(), "error", err)
}
