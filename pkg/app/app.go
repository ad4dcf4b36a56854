package app

import (
	"context"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

var (
	ErrAppAlreadyRunning = errors.New("app: already running")
)

// Server 随应用启停的服务（如 metrics HTTP 服务）
type Server interface {
	Start() error
	Stop() error
}

// Closer 资源清理接口（连接池、TracerProvider）
type Closer interface {
	Close() error
}

// CloserFunc 函数适配为 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// Task 应用的主体工作，全部返回后应用退出
type Task func(ctx context.Context) error

// App 运行一组任务，并负责服务与资源的启停
type App struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer
	tasks   []Task

	mu sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// New 创建应用
func New(opts ...Option) *App {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}

	return &App{
		opts:   o,
		logger: o.Logger.Named(o.Name),
	}
}

// Logger 应用日志对象
func (a *App) Logger() logger.Logger {
	return a.logger
}

// ID 应用实例 ID
func (a *App) ID() string {
	return a.opts.ID
}

// Run 启动服务并运行全部任务
// 任务全部结束、任一任务出错、ctx 取消或收到 SIGINT/SIGTERM 时停止服务并关闭资源
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	a.logger.Info("application starting",
		"name", a.opts.Name,
		"version", info.Version,
		"commit", info.GitCommit,
		"build_date", info.BuildDate,
		"go_version", info.GoVersion,
		"id", a.opts.ID,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	tasks := append([]Task(nil), a.tasks...)
	a.mu.Unlock()

	for _, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "error", err)
			return errors.CombineErrors(err, a.Shutdown())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}

	err := g.Wait()
	switch {
	case ctx.Err() != nil:
		a.logger.Info("context cancelled, shutting down")
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case err != nil:
		a.logger.Error("task failed, shutting down", "error", err)
	default:
		a.logger.Info("all tasks finished")
	}

	return errors.CombineErrors(err, a.Shutdown())
}

// Shutdown 停止服务，逆序关闭资源，只执行一次
func (a *App) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("application shutting down")

	done := make(chan error, 1)
	go func() {
		var g errgroup.Group
		for _, srv := range a.servers {
			g.Go(func() error {
				if err := srv.Stop(); err != nil {
					a.logger.Error("failed to stop server", "error", err)
					return err
				}
				return nil
			})
		}
		done <- g.Wait()
	}()

	var errs error
	select {
	case err := <-done:
		errs = err
		a.logger.Info("all servers stopped")
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
	}

	// LIFO
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
			errs = errors.CombineErrors(errs, err)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return errs
}

// AppendServer 添加服务
func (a *App) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源清理组件
func (a *App) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// AppendTask 添加任务
func (a *App) AppendTask(task ...Task) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, task...)
}
