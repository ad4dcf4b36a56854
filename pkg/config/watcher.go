package config

import (
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件并在变化时重新解析为 T
type Watcher[T any] struct {
	mgr       Manager
	validator *Validator
	mu        sync.RWMutex
	current   *T
	callbacks []func(*T)
	onError   func(error)
}

// NewWatcher 从已加载的 Manager 解析初始配置，调用 Start 后开始监听
// validator 为 nil 时不校验，onError 接收重新加载失败的错误，可为 nil
func NewWatcher[T any](mgr Manager, validator *Validator, onError func(error)) (*Watcher[T], error) {
	w := &Watcher[T]{mgr: mgr, validator: validator, onError: onError}

	cfg, err := w.load()
	if err != nil {
		return nil, err
	}
	w.current = cfg
	return w, nil
}

// Start 开始监听文件变化
func (w *Watcher[T]) Start() error {
	return w.mgr.Watch(w.reload)
}

// Close 停止监听
func (w *Watcher[T]) Close() error {
	return w.mgr.StopWatch()
}

// Get 当前生效的配置
func (w *Watcher[T]) Get() *T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange 注册变化回调，只在新配置解析并校验成功后触发
func (w *Watcher[T]) OnChange(callback func(*T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher[T]) load() (*T, error) {
	cfg := new(T)
	if err := w.mgr.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if w.validator != nil {
		if err := w.validator.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (w *Watcher[T]) reload(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	cfg, err := w.load()
	if err != nil {
		// 保留旧配置
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}
