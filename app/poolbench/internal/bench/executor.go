package bench

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/sqlpool"
)

// Executor 执行一次查询，需要支持并发调用
type Executor interface {
	Exec(ctx context.Context, query string) error
	Close() error
}

// poolExecutor 每次查询从连接池借用连接
type poolExecutor struct {
	pool *sqlpool.Pool
}

// NewPoolExecutor 基于连接池的执行器，Close 时关闭连接池
func NewPoolExecutor(p *sqlpool.Pool) Executor {
	return &poolExecutor{pool: p}
}

func (e *poolExecutor) Exec(ctx context.Context, query string) error {
	return sqlpool.WithConnection(ctx, e.pool, func(c *sqlpool.Conn) error {
		_, err := c.Query(ctx, query)
		return err
	})
}

func (e *poolExecutor) Close() error {
	return e.pool.Close()
}

// connExecutor 共用一个物理连接，查询串行执行
type connExecutor struct {
	mu   sync.Mutex
	conn driver.Conn
}

// NewConnExecutor 打开一个物理连接供所有查询共用
func NewConnExecutor(ctx context.Context, drv driver.Driver) (Executor, error) {
	conn, err := drv.Open(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bench: open connection")
	}
	return &connExecutor{conn: conn}, nil
}

func (e *connExecutor) Exec(ctx context.Context, query string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.conn.Query(ctx, query)
	return err
}

func (e *connExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.Close()
}

// dialExecutor 每次查询新建并关闭物理连接
type dialExecutor struct {
	drv driver.Driver
}

// NewDialExecutor 每次查询都重新建连的执行器
func NewDialExecutor(drv driver.Driver) Executor {
	return &dialExecutor{drv: drv}
}

func (e *dialExecutor) Exec(ctx context.Context, query string) error {
	conn, err := e.drv.Open(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Query(ctx, query)
	return errors.CombineErrors(err, conn.Close())
}

func (e *dialExecutor) Close() error {
	return nil
}
