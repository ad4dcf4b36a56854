package bench

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
)

// Mode 压测模式
type Mode string

const (
	ModePool    Mode = "pool"     // 每次查询从连接池借用
	ModeOneConn Mode = "one-conn" // 所有查询共用一个物理连接
	ModeNewConn Mode = "new-conn" // 每次查询新建物理连接
)

// ErrInvalidConfig 压测配置非法
var ErrInvalidConfig = errors.New("bench: invalid config")

// Config 压测配置
type Config struct {
	Mode    Mode   `mapstructure:"mode" json:"mode" yaml:"mode" validate:"oneof=pool one-conn new-conn"`
	Num     int    `mapstructure:"num" json:"num" yaml:"num" validate:"gte=1"`
	Workers int    `mapstructure:"workers" json:"workers" yaml:"workers" validate:"gte=1"`
	Query   string `mapstructure:"query" json:"query" yaml:"query" validate:"required"`

	// 0 表示不限速，运行中可通过配置文件热更新
	QPS   float64 `mapstructure:"qps" json:"qps" yaml:"qps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" json:"burst" yaml:"burst" validate:"gte=0"` // 0 表示等于 Workers

	ReportInterval time.Duration `mapstructure:"report_interval" json:"report_interval" yaml:"report_interval" validate:"gte=0"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModePool,
		Num:            10000,
		Workers:        8,
		Query:          "SELECT 1",
		ReportInterval: time.Second,
	}
}

var validator = sync.OnceValue(config.NewValidator)

// Validate 补全默认值并校验
func (c *Config) Validate() error {
	if c.Burst == 0 {
		c.Burst = c.Workers
	}
	if err := validator().Validate(c); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return nil
}
