package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Manager 配置管理器
type Manager interface {
	// LoadFile 加载配置文件，类型由扩展名决定
	LoadFile(path string) error
	// BindEnv 绑定环境变量，prefix 为 "SQLPOOL" 时 pool.size 对应 SQLPOOL_POOL_SIZE
	BindEnv(prefix string)
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置，如 "pool" 或 "pool.size"
	UnmarshalKey(key string, v any) error
	Get(key string) any
	GetString(key string) string
	IsSet(key string) bool
	// Set 覆盖配置项，优先级最高
	Set(key string, value any)
	// Watch 监听配置文件变化，文件写入并重新读取成功后触发 callback
	Watch(callback func(fsnotify.Event)) error
	// StopWatch 停止监听并等待监听协程退出
	StopWatch() error
	// ConfigFile 当前加载的配置文件路径
	ConfigFile() string
}

type manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	callbacks []func(fsnotify.Event)
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(ErrConfigFileNotFound, "%s", path)
	}

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "config: failed to read %s", path)
	}
	return nil
}

func (m *manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, decodeHook()); err != nil {
		return errors.Wrap(err, "config: failed to unmarshal")
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v, decodeHook()); err != nil {
		return errors.Wrapf(err, "config: failed to unmarshal key %s", key)
	}
	return nil
}

func (m *manager) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key)
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

func (m *manager) ConfigFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.ConfigFileUsed()
}

func (m *manager) Watch(callback func(fsnotify.Event)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)
	if m.watcher != nil {
		return nil
	}

	file := m.v.ConfigFileUsed()
	if file == "" {
		return errors.Wrap(ErrConfigFileNotFound, "config: no config file to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "config: failed to create watcher")
	}
	// 监听所在目录，编辑器以重命名方式保存时仍能收到事件
	if err := fw.Add(filepath.Dir(file)); err != nil {
		_ = fw.Close()
		return errors.Wrapf(err, "config: failed to watch %s", file)
	}

	m.watcher = fw
	m.watchDone = make(chan struct{})
	go m.watchLoop(fw, filepath.Clean(file), m.watchDone)
	return nil
}

func (m *manager) watchLoop(fw *fsnotify.Watcher, file string, done chan struct{}) {
	defer close(done)

	for {
		select {
		case e, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != file || !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create)) {
				continue
			}

			m.mu.Lock()
			err := m.v.ReadInConfig()
			callbacks := slices.Clone(m.callbacks)
			m.mu.Unlock()

			// 写入未完成时可能读到不完整的文件，等待下一次事件
			if err != nil {
				continue
			}
			for _, cb := range callbacks {
				cb(e)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (m *manager) StopWatch() error {
	m.mu.Lock()
	fw, done := m.watcher, m.watchDone
	m.watcher, m.watchDone = nil, nil
	m.callbacks = nil
	m.mu.Unlock()

	if fw == nil {
		return nil
	}
	err := fw.Close()
	<-done
	if err != nil {
		return errors.Wrap(err, "config: failed to stop watcher")
	}
	return nil
}

// decodeHook duration 支持 "100ms"，切片支持逗号分隔
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
}
