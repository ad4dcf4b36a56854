package main

import (
	"context"
	"fmt"

	"github.com/lk2023060901/xdooria-sqlpool/app/poolbench/internal/bench"
	"github.com/lk2023060901/xdooria-sqlpool/app/poolbench/internal/metrics"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/app"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/sqlpool"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/otel"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/prometheus"
)

// newApp 按配置组装追踪、指标、执行器和压测任务
// 资源按创建的逆序关闭
func newApp(cfg *Config, mgr config.Manager, l logger.Logger) (*app.App, error) {
	a := app.New(app.WithName("poolbench"), app.WithLogger(l))

	benchCfg, err := config.MergeConfig(bench.DefaultConfig(), &cfg.Bench)
	if err != nil {
		return nil, err
	}
	if err := benchCfg.Validate(); err != nil {
		return nil, err
	}

	tp, err := otel.New(&cfg.Trace)
	if err != nil {
		return nil, err
	}
	a.AppendCloser(tp)

	promCfg, err := config.MergeConfig(prometheus.DefaultConfig(), &cfg.Prometheus)
	if err != nil {
		return nil, err
	}
	client, err := prometheus.New(promCfg, prometheus.WithLogger(l))
	if err != nil {
		return nil, err
	}
	a.AppendServer(client)

	m, err := metrics.New(&cfg.Metrics, client, string(benchCfg.Mode), l)
	if err != nil {
		return nil, err
	}
	a.AppendServer(m)

	exec, err := newExecutor(cfg, benchCfg.Mode, l, tp, m)
	if err != nil {
		return nil, err
	}
	a.AppendCloser(exec)

	runner, err := bench.NewRunner(benchCfg, exec,
		bench.WithLogger(l.Named("bench")),
		bench.WithObserver(m),
	)
	if err != nil {
		return nil, err
	}

	w, err := watchConfig(mgr, runner, l)
	if err != nil {
		return nil, err
	}
	if w != nil {
		a.AppendCloser(w)
	}

	a.AppendTask(func(ctx context.Context) error {
		res, err := runner.Run(ctx)
		fmt.Println(res)
		return err
	})
	return a, nil
}

func newExecutor(cfg *Config, mode bench.Mode, l logger.Logger, tp *otel.TracerProvider, m *metrics.BenchMetrics) (bench.Executor, error) {
	if mode == bench.ModePool {
		p, err := sqlpool.Open(&cfg.Pool,
			sqlpool.WithLogger(l),
			sqlpool.WithTracer(tp.Tracer("sqlpool")),
		)
		if err != nil {
			return nil, err
		}
		m.AddPool(p)
		return bench.NewPoolExecutor(p), nil
	}

	drv, err := driver.Open(&cfg.Pool.DB)
	if err != nil {
		return nil, err
	}
	if mode == bench.ModeOneConn {
		return bench.NewConnExecutor(context.Background(), drv)
	}
	return bench.NewDialExecutor(drv), nil
}

// watchConfig 配置文件变化时调整限速，未加载配置文件时返回 nil
func watchConfig(mgr config.Manager, runner *bench.Runner, l logger.Logger) (*config.Watcher[Config], error) {
	if mgr.ConfigFile() == "" {
		return nil, nil
	}

	w, err := config.NewWatcher[Config](mgr, nil, func(err error) {
		l.Warn("failed to reload config", "error", err)
	})
	if err != nil {
		return nil, err
	}

	w.OnChange(func(c *Config) {
		if c.Bench.QPS != runner.QPS() {
			runner.SetQPS(c.Bench.QPS)
		}
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
