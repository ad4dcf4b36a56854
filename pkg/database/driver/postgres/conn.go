package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// 空闲事务状态（ReadyForQuery 'I'）
const txStatusIdle = 'I'

var (
	_ driver.Conn            = (*conn)(nil)
	_ driver.SessionResetter = (*conn)(nil)
)

// conn 包装单个 pgx.Conn
type conn struct {
	pc  *pgx.Conn
	cfg *driver.DBConfig
}

func newConn(pc *pgx.Conn, cfg *driver.DBConfig) *conn {
	return &conn{pc: pc, cfg: cfg}
}

// Ping 空语句探测
func (c *conn) Ping(ctx context.Context) error {
	return c.pc.Ping(ctx)
}

// Exec 执行写语句
func (c *conn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	tag, err := c.pc.Exec(ctx, query, args...)
	if err != nil {
		return driver.Result{}, err
	}
	return driver.Result{RowsAffected: tag.RowsAffected()}, nil
}

// Query 执行查询并读取全部结果
func (c *conn) Query(ctx context.Context, query string, args ...any) (*driver.Rows, error) {
	rows, err := c.pc.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := &driver.Rows{Columns: make([]string, len(fields))}
	for i, f := range fields {
		out.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetSession 回滚未完成的事务
// 关闭自动提交时重新开启一个事务，保持与新建连接一致
func (c *conn) ResetSession(ctx context.Context) error {
	if c.pc.PgConn().TxStatus() != txStatusIdle {
		if _, err := c.pc.Exec(ctx, "ROLLBACK"); err != nil {
			return err
		}
	}
	return c.begin(ctx)
}

// Close 发送 Terminate 并关闭连接
func (c *conn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pc.Close(ctx)
}

// begin 关闭自动提交时模拟 autocommit=0
func (c *conn) begin(ctx context.Context) error {
	if c.cfg.AutocommitEnabled() {
		return nil
	}
	_, err := c.pc.Exec(ctx, "BEGIN")
	return err
}
