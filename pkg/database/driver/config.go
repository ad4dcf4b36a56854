package driver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DBConfig 数据库连接配置，原样透传给驱动
type DBConfig struct {
	Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"required"` // mysql, postgres
	Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	User     string `mapstructure:"user" json:"user" yaml:"user"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	Database string `mapstructure:"database" json:"database" yaml:"database"`

	// 会话参数
	Autocommit *bool  `mapstructure:"autocommit" json:"autocommit,omitempty" yaml:"autocommit,omitempty"` // nil 表示使用服务端默认值
	Charset    string `mapstructure:"charset" json:"charset" yaml:"charset"`

	// 超时
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`

	// 其他驱动参数
	Params map[string]string `mapstructure:"params" json:"params,omitempty" yaml:"params,omitempty"`
}

var defaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
}

// EffectivePort 未配置端口时返回驱动默认端口
func (c *DBConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	return defaultPorts[c.Driver]
}

// Addr 返回 host:port
func (c *DBConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort()))
}

// DefaultName 连接池默认名称：host-port-user-database
func (c *DBConfig) DefaultName() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return strings.Join([]string{host, strconv.Itoa(c.EffectivePort()), c.User, c.Database}, "-")
}

// AutocommitEnabled 返回是否显式开启自动提交
func (c *DBConfig) AutocommitEnabled() bool {
	return c.Autocommit == nil || *c.Autocommit
}

// String 打印配置（隐藏密码）
func (c *DBConfig) String() string {
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.User, c.Addr(), c.Database)
}

// Bool 返回 b 的指针，便于设置 Autocommit
func Bool(b bool) *bool {
	return &b
}
