package mysql

import (
	"context"
	sqldriver "database/sql/driver"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

var (
	_ driver.Conn            = (*conn)(nil)
	_ driver.SessionResetter = (*conn)(nil)
)

// conn 包装 go-sql-driver 的原始会话
type conn struct {
	raw sqldriver.Conn
	cfg *driver.DBConfig
}

func newConn(raw sqldriver.Conn, cfg *driver.DBConfig) *conn {
	return &conn{raw: raw, cfg: cfg}
}

// Ping 发送 COM_PING
func (c *conn) Ping(ctx context.Context) error {
	pinger, ok := c.raw.(sqldriver.Pinger)
	if !ok {
		_, err := c.Query(ctx, "SELECT 1")
		return err
	}
	return pinger.Ping(ctx)
}

// Exec 执行写语句
func (c *conn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	named, err := c.namedValues(args)
	if err != nil {
		return driver.Result{}, err
	}

	var res sqldriver.Result
	if execer, ok := c.raw.(sqldriver.ExecerContext); ok {
		res, err = execer.ExecContext(ctx, query, named)
	} else {
		err = sqldriver.ErrSkip
	}

	// 未开启 interpolateParams 时带参数的语句需要走预处理
	if errors.Is(err, sqldriver.ErrSkip) {
		res, err = c.execPrepared(ctx, query, named)
	}
	if err != nil {
		return driver.Result{}, err
	}

	return toResult(res), nil
}

// Query 执行查询并读取全部结果
func (c *conn) Query(ctx context.Context, query string, args ...any) (*driver.Rows, error) {
	named, err := c.namedValues(args)
	if err != nil {
		return nil, err
	}

	var rows sqldriver.Rows
	if queryer, ok := c.raw.(sqldriver.QueryerContext); ok {
		rows, err = queryer.QueryContext(ctx, query, named)
	} else {
		err = sqldriver.ErrSkip
	}

	if errors.Is(err, sqldriver.ErrSkip) {
		return c.queryPrepared(ctx, query, named)
	}
	if err != nil {
		return nil, err
	}

	return readRows(rows)
}

// ResetSession 归还连接池前清理会话
// 未提交的事务一律回滚，自动提交模式下显式开启的事务同样回滚，
// 并恢复配置中的 autocommit
func (c *conn) ResetSession(ctx context.Context) error {
	// 没有进行中的事务时 ROLLBACK 不做任何事
	if _, err := c.Exec(ctx, "ROLLBACK"); err != nil {
		return err
	}

	if c.cfg.Autocommit != nil {
		stmt := "SET autocommit=1"
		if !*c.cfg.Autocommit {
			stmt = "SET autocommit=0"
		}
		if _, err := c.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	if resetter, ok := c.raw.(sqldriver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// Close 发送 COM_QUIT 并关闭 socket
func (c *conn) Close() error {
	return c.raw.Close()
}

func (c *conn) execPrepared(ctx context.Context, query string, named []sqldriver.NamedValue) (sqldriver.Result, error) {
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	execer, ok := stmt.(sqldriver.StmtExecContext)
	if !ok {
		return nil, errors.New("mysql: statement does not support ExecContext")
	}
	return execer.ExecContext(ctx, named)
}

func (c *conn) queryPrepared(ctx context.Context, query string, named []sqldriver.NamedValue) (*driver.Rows, error) {
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	queryer, ok := stmt.(sqldriver.StmtQueryContext)
	if !ok {
		return nil, errors.New("mysql: statement does not support QueryContext")
	}
	rows, err := queryer.QueryContext(ctx, named)
	if err != nil {
		return nil, err
	}
	return readRows(rows)
}

func (c *conn) prepare(ctx context.Context, query string) (sqldriver.Stmt, error) {
	if preparer, ok := c.raw.(sqldriver.ConnPrepareContext); ok {
		return preparer.PrepareContext(ctx, query)
	}
	return c.raw.Prepare(query)
}

// namedValues 参数转换，优先使用驱动自身的 NamedValueChecker
func (c *conn) namedValues(args []any) ([]sqldriver.NamedValue, error) {
	if len(args) == 0 {
		return nil, nil
	}

	checker, hasChecker := c.raw.(sqldriver.NamedValueChecker)
	named := make([]sqldriver.NamedValue, len(args))
	for i, arg := range args {
		nv := sqldriver.NamedValue{Ordinal: i + 1, Value: arg}
		if hasChecker {
			err := checker.CheckNamedValue(&nv)
			if err == nil {
				named[i] = nv
				continue
			}
			if !errors.Is(err, sqldriver.ErrSkip) {
				return nil, errors.Wrapf(err, "mysql: invalid argument %d", i+1)
			}
		}

		v, err := sqldriver.DefaultParameterConverter.ConvertValue(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "mysql: invalid argument %d", i+1)
		}
		nv.Value = v
		named[i] = nv
	}
	return named, nil
}

func readRows(rows sqldriver.Rows) (*driver.Rows, error) {
	defer rows.Close()

	cols := rows.Columns()
	out := &driver.Rows{Columns: cols}
	for {
		dest := make([]sqldriver.Value, len(cols))
		if err := rows.Next(dest); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		row := make([]any, len(dest))
		for i, v := range dest {
			// 文本协议返回的 []byte 指向驱动内部缓冲区，必须拷贝
			if b, ok := v.([]byte); ok {
				row[i] = append([]byte(nil), b...)
				continue
			}
			row[i] = v
		}
		out.Values = append(out.Values, row)
	}
	return out, nil
}

func toResult(res sqldriver.Result) driver.Result {
	var out driver.Result
	if res == nil {
		return out
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out
}
