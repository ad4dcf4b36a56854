package mysql

import (
	"context"
	sqldriver "database/sql/driver"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// TestBuildConfig 测试配置转换
func TestBuildConfig(t *testing.T) {
	cfg := &driver.DBConfig{
		Driver:         DriverName,
		Host:           "192.168.1.111",
		User:           "user",
		Password:       "pass",
		Database:       "test",
		Autocommit:     driver.Bool(true),
		Charset:        "utf8mb4",
		ConnectTimeout: 3 * time.Second,
		ReadTimeout:    5 * time.Second,
		Params:         map[string]string{"time_zone": "'+00:00'"},
	}

	mcfg := buildConfig(cfg)
	assert.Equal(t, "tcp", mcfg.Net)
	assert.Equal(t, "192.168.1.111:3306", mcfg.Addr)
	assert.Equal(t, "user", mcfg.User)
	assert.Equal(t, "pass", mcfg.Passwd)
	assert.Equal(t, "test", mcfg.DBName)
	assert.Equal(t, 3*time.Second, mcfg.Timeout)
	assert.Equal(t, 5*time.Second, mcfg.ReadTimeout)
	assert.True(t, mcfg.ParseTime)
	assert.Equal(t, "1", mcfg.Params["autocommit"])
	assert.Equal(t, "utf8mb4", mcfg.Params["charset"])
	assert.Equal(t, "'+00:00'", mcfg.Params["time_zone"])

	// 原配置的 Params 不应被修改
	assert.NotContains(t, cfg.Params, "autocommit")

	cfg.Autocommit = driver.Bool(false)
	assert.Equal(t, "0", buildConfig(cfg).Params["autocommit"])

	cfg.Autocommit = nil
	assert.NotContains(t, buildConfig(cfg).Params, "autocommit")
}

// TestNewDriver 测试创建驱动（不连接服务端）
func TestNewDriver(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, driver.ErrNilConfig))

	d, err := New(&driver.DBConfig{Driver: DriverName, Host: "localhost", Port: 13306, User: "root", Database: "app"})
	require.NoError(t, err)
	assert.Equal(t, DriverName, d.Name())
	assert.Contains(t, d.DSN(), "root@tcp(localhost:13306)/app")

	// 通过注册表创建
	viaRegistry, err := driver.Open(&driver.DBConfig{Driver: DriverName, Host: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, DriverName, viaRegistry.Name())
}

// TestOpenUnreachable 连接不可达地址返回 IO 类错误
func TestOpenUnreachable(t *testing.T) {
	d, err := New(&driver.DBConfig{
		Driver:         DriverName,
		Host:           "127.0.0.1",
		Port:           1,
		User:           "root",
		ConnectTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = d.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, driver.ClassIO, d.Classify(err))
}

// TestClassify 测试错误归类
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want driver.ErrorClass
	}{
		{name: "nil", err: nil, want: driver.ClassUnknown},
		{name: "parse error", err: &gomysql.MySQLError{Number: 1064}, want: driver.ClassProgramming},
		{name: "no such table", err: &gomysql.MySQLError{Number: 1146}, want: driver.ClassProgramming},
		{name: "duplicate entry", err: &gomysql.MySQLError{Number: 1062}, want: driver.ClassIntegrity},
		{name: "foreign key", err: fmt.Errorf("insert: %w", &gomysql.MySQLError{Number: 1452}), want: driver.ClassIntegrity},
		{name: "table access denied", err: &gomysql.MySQLError{Number: 1142}, want: driver.ClassAccess},
		{name: "not supported", err: &gomysql.MySQLError{Number: 1235}, want: driver.ClassNotSupported},
		{name: "data too long", err: &gomysql.MySQLError{Number: 1406}, want: driver.ClassData},
		{name: "deadlock", err: &gomysql.MySQLError{Number: 1213}, want: driver.ClassTransaction},
		{name: "server shutdown", err: &gomysql.MySQLError{Number: 1053}, want: driver.ClassOperational},
		{name: "connection killed", err: &gomysql.MySQLError{Number: 1927}, want: driver.ClassOperational},
		{name: "unmapped server error", err: &gomysql.MySQLError{Number: 9999}, want: driver.ClassUnknown},
		{name: "invalid conn", err: gomysql.ErrInvalidConn, want: driver.ClassIO},
		{name: "malformed packet", err: gomysql.ErrMalformPkt, want: driver.ClassProtocol},
		{name: "packet sync", err: errors.Wrap(gomysql.ErrPktSync, "read"), want: driver.ClassProtocol},
		{name: "eof", err: io.EOF, want: driver.ClassIO},
		{name: "canceled", err: context.Canceled, want: driver.ClassOperational},
		{name: "plain", err: errors.New("boom"), want: driver.ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

// recordConn 记录执行的语句，代替真实会话
type recordConn struct {
	stmts  []string
	failOn string
	resets int
	closed bool
}

func (c *recordConn) Prepare(string) (sqldriver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *recordConn) Close() error {
	c.closed = true
	return nil
}

func (c *recordConn) Begin() (sqldriver.Tx, error) {
	return nil, errors.New("begin not supported")
}

func (c *recordConn) ExecContext(_ context.Context, query string, _ []sqldriver.NamedValue) (sqldriver.Result, error) {
	c.stmts = append(c.stmts, query)
	if query == c.failOn {
		return nil, io.ErrUnexpectedEOF
	}
	return sqldriver.RowsAffected(0), nil
}

func (c *recordConn) ResetSession(context.Context) error {
	c.resets++
	return nil
}

// TestResetSession 归还前总是回滚，并按配置恢复 autocommit
func TestResetSession(t *testing.T) {
	tests := []struct {
		name       string
		autocommit *bool
		want       []string
	}{
		{name: "server default", autocommit: nil, want: []string{"ROLLBACK"}},
		{name: "autocommit on", autocommit: driver.Bool(true), want: []string{"ROLLBACK", "SET autocommit=1"}},
		{name: "autocommit off", autocommit: driver.Bool(false), want: []string{"ROLLBACK", "SET autocommit=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &recordConn{}
			c := newConn(raw, &driver.DBConfig{Driver: "mysql", Autocommit: tt.autocommit})

			require.NoError(t, c.ResetSession(context.Background()))
			assert.Equal(t, tt.want, raw.stmts)
			assert.Equal(t, 1, raw.resets)
		})
	}
}

// TestResetSessionRollbackFailed 回滚失败时返回错误且不再继续
func TestResetSessionRollbackFailed(t *testing.T) {
	raw := &recordConn{failOn: "ROLLBACK"}
	c := newConn(raw, &driver.DBConfig{Driver: "mysql", Autocommit: driver.Bool(false)})

	err := c.ResetSession(context.Background())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, []string{"ROLLBACK"}, raw.stmts)
	assert.Zero(t, raw.resets)
}
