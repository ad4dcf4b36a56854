package mysql

import (
	"context"
	sqldriver "database/sql/driver"

	"github.com/cockroachdb/errors"
	gomysql "github.com/go-sql-driver/mysql"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// DriverName 注册名称
const DriverName = "mysql"

func init() {
	driver.Register(DriverName, func(cfg *driver.DBConfig) (driver.Driver, error) {
		return New(cfg)
	})
}

// 确保 Driver 实现了 driver.Driver 接口
var _ driver.Driver = (*Driver)(nil)

// Driver MySQL 物理连接工厂
type Driver struct {
	cfg       *driver.DBConfig
	mcfg      *gomysql.Config
	connector sqldriver.Connector
}

// New 创建 MySQL 驱动
func New(cfg *driver.DBConfig) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrNilConfig
	}

	mcfg := buildConfig(cfg)
	connector, err := gomysql.NewConnector(mcfg)
	if err != nil {
		return nil, errors.Wrap(err, "mysql: failed to create connector")
	}

	return &Driver{
		cfg:       cfg,
		mcfg:      mcfg,
		connector: connector,
	}, nil
}

// Name 驱动名称
func (d *Driver) Name() string {
	return DriverName
}

// DSN 返回等价的 DSN（调试用）
func (d *Driver) DSN() string {
	return d.mcfg.FormatDSN()
}

// Open 打开一个物理连接
// 直接使用 Connector 建立会话，不经过 database/sql 的内部连接池
func (d *Driver) Open(ctx context.Context) (driver.Conn, error) {
	if d.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ConnectTimeout)
		defer cancel()
	}

	raw, err := d.connector.Connect(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "mysql: failed to connect %s", d.cfg.Addr())
	}

	return newConn(raw, d.cfg), nil
}

// Classify 错误归类
func (d *Driver) Classify(err error) driver.ErrorClass {
	return Classify(err)
}

// buildConfig 将通用配置转换为 go-sql-driver 配置
func buildConfig(cfg *driver.DBConfig) *gomysql.Config {
	mcfg := gomysql.NewConfig()
	mcfg.Net = "tcp"
	mcfg.Addr = cfg.Addr()
	mcfg.User = cfg.User
	mcfg.Passwd = cfg.Password
	mcfg.DBName = cfg.Database
	mcfg.Timeout = cfg.ConnectTimeout
	mcfg.ReadTimeout = cfg.ReadTimeout
	mcfg.WriteTimeout = cfg.WriteTimeout
	mcfg.ParseTime = true

	params := make(map[string]string, len(cfg.Params)+2)
	for k, v := range cfg.Params {
		params[k] = v
	}
	if cfg.Charset != "" {
		params["charset"] = cfg.Charset
	}
	// 未识别的参数会被驱动作为 SET 语句在握手后执行
	if cfg.Autocommit != nil {
		if *cfg.Autocommit {
			params["autocommit"] = "1"
		} else {
			params["autocommit"] = "0"
		}
	}
	if len(params) > 0 {
		mcfg.Params = params
	}

	return mcfg
}
