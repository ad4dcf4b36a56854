package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// DriverName 注册名称
const DriverName = "postgres"

func init() {
	driver.Register(DriverName, func(cfg *driver.DBConfig) (driver.Driver, error) {
		return New(cfg)
	})
}

// 确保 Driver 实现了 driver.Driver 接口
var _ driver.Driver = (*Driver)(nil)

// Driver PostgreSQL 物理连接工厂
type Driver struct {
	cfg     *driver.DBConfig
	connCfg *pgx.ConnConfig
}

// New 创建 PostgreSQL 驱动
func New(cfg *driver.DBConfig) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrNilConfig
	}

	connCfg, err := pgx.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "postgres: failed to parse config")
	}

	if cfg.Charset != "" {
		connCfg.RuntimeParams["client_encoding"] = cfg.Charset
	}

	return &Driver{cfg: cfg, connCfg: connCfg}, nil
}

// Name 驱动名称
func (d *Driver) Name() string {
	return DriverName
}

// Open 打开一个物理连接
func (d *Driver) Open(ctx context.Context) (driver.Conn, error) {
	if d.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ConnectTimeout)
		defer cancel()
	}

	// ConnectConfig 要求 config 来自 ParseConfig，且每次连接使用副本
	pc, err := pgx.ConnectConfig(ctx, d.connCfg.Copy())
	if err != nil {
		return nil, errors.Wrapf(err, "postgres: failed to connect %s", d.cfg.Addr())
	}

	c := newConn(pc, d.cfg)
	if err := c.begin(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Classify 错误归类
func (d *Driver) Classify(err error) driver.ErrorClass {
	return Classify(err)
}

// buildConnString 构建 keyword/value 格式连接字符串
func buildConnString(cfg *driver.DBConfig) string {
	kv := map[string]string{
		"host":    cfg.Host,
		"port":    fmt.Sprintf("%d", cfg.EffectivePort()),
		"sslmode": "disable",
	}
	if cfg.User != "" {
		kv["user"] = cfg.User
	}
	if cfg.Password != "" {
		kv["password"] = cfg.Password
	}
	if cfg.Database != "" {
		kv["dbname"] = cfg.Database
	}
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		kv["connect_timeout"] = fmt.Sprintf("%d", secs)
	}
	for k, v := range cfg.Params {
		kv[k] = v
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(kv[k]))
	}
	return strings.Join(parts, " ")
}

// quoteValue 对含空格、引号、反斜杠的值加单引号
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
