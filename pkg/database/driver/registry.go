package driver

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownDriver 驱动未注册
	ErrUnknownDriver = errors.New("driver: unknown driver")

	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("driver: config is nil")
)

// Factory 根据配置创建驱动
type Factory func(cfg *DBConfig) (Driver, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register 注册驱动工厂，重复注册会覆盖
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open 根据 cfg.Driver 创建驱动
func Open(cfg *DBConfig) (Driver, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Driver]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDriver, "%q (forgotten import?)", cfg.Driver)
	}

	return f(cfg)
}

// Drivers 返回已注册的驱动名称（排序）
func Drivers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
