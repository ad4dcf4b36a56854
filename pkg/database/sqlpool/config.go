package sqlpool

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// MaxRetryNum 单次获取连接的重试上限
const MaxRetryNum = 10

// Config 连接池配置
type Config struct {
	// 为空时使用 host-port-user-database
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// 为 0 时使用默认值，负数校验失败
	Size         int `mapstructure:"size" json:"size" yaml:"size" validate:"gte=1"`
	MaxSize      int `mapstructure:"max_size" json:"max_size" yaml:"max_size" validate:"gtefield=Size"` // 0 表示等于 Size
	PreCreateNum int `mapstructure:"pre_create_num" json:"pre_create_num" yaml:"pre_create_num" validate:"gte=0,ltefield=Size"`

	// 连接最长存活时间，nil 使用默认值，0 或负数表示不限制
	ConnLifetime *time.Duration `mapstructure:"conn_lifetime" json:"conn_lifetime" yaml:"conn_lifetime"`
	// 借出空闲连接前先 Ping
	PrePing bool `mapstructure:"pre_ping" json:"pre_ping" yaml:"pre_ping"`

	// Get 使用的默认重试参数，RetryNum 为 nil 使用默认值，0 或负数表示不重试
	RetryNum      *int          `mapstructure:"retry_num" json:"retry_num" yaml:"retry_num" validate:"omitnil,lte=10"`
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retry_interval" yaml:"retry_interval" validate:"gte=0"`

	DB driver.DBConfig `mapstructure:"db" json:"db" yaml:"db" validate:"-"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Size:          10,
		ConnLifetime:  config.Ptr(time.Hour),
		RetryNum:      config.Ptr(3),
		RetryInterval: 100 * time.Millisecond,
	}
}

var validator = sync.OnceValue(config.NewValidator)

// Validate 补全默认值并校验
func (c *Config) Validate() error {
	if c.MaxSize == 0 {
		c.MaxSize = c.Size
	}
	if c.Name == "" {
		c.Name = c.DB.DefaultName()
	}
	if err := validator().Validate(c); err != nil {
		return misuse(ErrInvalidConfig, "%v", err)
	}
	return nil
}

// Lifetime 连接最长存活时间，未设置时为 0
func (c *Config) Lifetime() time.Duration {
	if c.ConnLifetime == nil {
		return 0
	}
	return *c.ConnLifetime
}

// LifetimeEnabled 是否限制连接存活时间
func (c *Config) LifetimeEnabled() bool {
	return c.Lifetime() > 0
}

// Retries Get 使用的重试次数，未设置时为 0
func (c *Config) Retries() int {
	if c.RetryNum == nil {
		return 0
	}
	return *c.RetryNum
}

// mergeConfig 合并默认配置，返回的配置与 cfg 互不影响
func mergeConfig(cfg *Config) (*Config, error) {
	var src *Config
	if cfg != nil {
		cp := *cfg
		src = &cp
	}
	merged, err := config.MergeConfig(DefaultConfig(), src)
	if err != nil {
		return nil, errors.Wrap(err, "sqlpool: merge config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
