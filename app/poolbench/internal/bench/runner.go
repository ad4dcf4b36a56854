package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

// 失败超过该次数后不再逐条打印
const maxLoggedFailures = 10

// Observer 接收每次查询的结果和周期性进度
type Observer interface {
	Observe(latency time.Duration, err error)
	Progress(done, failed int64)
}

type nopObserver struct{}

func (nopObserver) Observe(time.Duration, error) {}
func (nopObserver) Progress(int64, int64)        {}

// Result 压测结果
type Result struct {
	Mode    Mode
	Total   int64
	Failed  int64
	Elapsed time.Duration
}

// QPS 每秒完成的查询数
func (r Result) QPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

// AvgLatency 按总耗时平摊到每次查询
func (r Result) AvgLatency() time.Duration {
	if r.Total == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Total)
}

func (r Result) String() string {
	return fmt.Sprintf("total %d finish within %.3fs.\n%.2f queries per second, avg %.3f ms per query",
		r.Total, r.Elapsed.Seconds(), r.QPS(), float64(r.AvgLatency())/float64(time.Millisecond))
}

// Option 压测选项
type Option func(*Runner)

// WithLogger 设置日志记录器
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithObserver 设置结果观察者
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// Runner 用固定数量的 worker 执行 Num 次查询
type Runner struct {
	config   *Config
	exec     Executor
	limiter  *rate.Limiter
	observer Observer
	logger   logger.Logger

	done   atomic.Int64
	failed atomic.Int64
}

// NewRunner 创建压测器，cfg 可以只包含部分字段
func NewRunner(cfg *Config, exec Executor, opts ...Option) (*Runner, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "bench: failed to merge config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		config:   merged,
		exec:     exec,
		limiter:  rate.NewLimiter(limitOf(merged.QPS), merged.Burst),
		observer: nopObserver{},
		logger:   logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func limitOf(qps float64) rate.Limit {
	if qps <= 0 {
		return rate.Inf
	}
	return rate.Limit(qps)
}

// SetQPS 调整限速，0 表示不限速
func (r *Runner) SetQPS(qps float64) {
	r.limiter.SetLimit(limitOf(qps))
	r.logger.Info("qps limit changed", "qps", qps)
}

// QPS 当前限速，0 表示不限速
func (r *Runner) QPS() float64 {
	limit := r.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}

// Config 生效的配置
func (r *Runner) Config() Config {
	return *r.config
}

// Progress 已完成与失败的查询数
func (r *Runner) Progress() (done, failed int64) {
	return r.done.Load(), r.failed.Load()
}

// Run 执行压测，ctx 取消时停止提交并等待已提交的查询结束
func (r *Runner) Run(ctx context.Context) (Result, error) {
	workers, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return Result{}, errors.Wrap(err, "bench: create worker pool")
	}
	defer workers.Release()

	r.logger.Info("benchmark started",
		"mode", r.config.Mode,
		"num", r.config.Num,
		"workers", r.config.Workers,
		"qps", r.config.QPS,
	)

	start := time.Now()
	finished := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(finished)
		return r.submit(ctx, workers)
	})
	if r.config.ReportInterval > 0 {
		g.Go(func() error {
			r.report(finished)
			return nil
		})
	}
	err = g.Wait()

	done, failed := r.Progress()
	res := Result{
		Mode:    r.config.Mode,
		Total:   done,
		Failed:  failed,
		Elapsed: time.Since(start),
	}
	r.logger.Info("benchmark finished",
		"total", res.Total,
		"failed", res.Failed,
		"elapsed", res.Elapsed,
		"qps", res.QPS(),
	)
	return res, err
}

func (r *Runner) submit(ctx context.Context, workers *ants.Pool) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for i := 0; i < r.config.Num; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "bench: stopped")
		}

		wg.Add(1)
		err := workers.Submit(func() {
			defer wg.Done()
			r.once(ctx)
		})
		if err != nil {
			wg.Done()
			return errors.Wrap(err, "bench: submit query")
		}
	}
	return nil
}

func (r *Runner) once(ctx context.Context) {
	start := time.Now()
	err := r.exec.Exec(ctx, r.config.Query)
	latency := time.Since(start)

	r.done.Add(1)
	if err != nil {
		if n := r.failed.Add(1); n <= maxLoggedFailures {
			r.logger.Warn("query failed", "error", err, "latency", latency)
		}
	}
	r.observer.Observe(latency, err)
}

func (r *Runner) report(finished <-chan struct{}) {
	ticker := time.NewTicker(r.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-finished:
			return
		case <-ticker.C:
			r.observer.Progress(r.Progress())
		}
	}
}
