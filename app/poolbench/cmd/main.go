package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/xdooria-sqlpool/app/poolbench/internal/bench"
	"github.com/lk2023060901/xdooria-sqlpool/app/poolbench/internal/metrics"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/app"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	_ "github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver/mysql"
	_ "github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver/postgres"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/sqlpool"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/otel"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/prometheus"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/sentry"
)

// Config 定义 poolbench 的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// 压测参数
	Bench bench.Config `mapstructure:"bench"`

	// 连接池与数据库配置，one-conn/new-conn 模式只使用 db 部分
	Pool sqlpool.Config `mapstructure:"pool"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// 压测指标配置
	Metrics metrics.Config `mapstructure:"metrics"`

	// 链路追踪配置
	Trace otel.Config `mapstructure:"trace"`

	// 错误上报配置，dsn 为空时关闭
	Sentry sentry.Config `mapstructure:"sentry"`
}

// flag 名 -> 配置 key
var flagBindings = map[string]string{
	"mode":         "bench.mode",
	"num":          "bench.num",
	"workers":      "bench.workers",
	"qps":          "bench.qps",
	"query":        "bench.query",
	"driver":       "pool.db.driver",
	"host":         "pool.db.host",
	"port":         "pool.db.port",
	"user":         "pool.db.user",
	"password":     "pool.db.password",
	"database":     "pool.db.database",
	"size":         "pool.size",
	"max-size":     "pool.max_size",
	"metrics":      "prometheus.http_server.enabled",
	"metrics-addr": "prometheus.http_server.addr",
}

var defaults = map[string]any{
	"pool.db.driver": "mysql",
	"pool.db.host":   "127.0.0.1",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("poolbench", pflag.ContinueOnError)
	fs.StringP(app.ConfigFlag, "c", "", "config file (default <exec dir>/config.yaml)")
	fs.BoolP("version", "v", false, "print version and exit")

	fs.StringP("mode", "m", string(bench.ModePool), "benchmark mode: pool, one-conn, new-conn")
	fs.IntP("num", "n", 10000, "total queries")
	fs.IntP("workers", "w", 8, "concurrent workers")
	fs.Float64("qps", 0, "query rate limit, 0 means unlimited")
	fs.StringP("query", "q", "SELECT 1", "statement to run")

	fs.String("driver", "mysql", "database driver: mysql, postgres")
	fs.StringP("host", "H", "127.0.0.1", "database host")
	fs.IntP("port", "P", 0, "database port (default by driver)")
	fs.StringP("user", "u", "", "database user")
	fs.StringP("password", "p", "", "database password")
	fs.StringP("database", "d", "", "database name")
	fs.Int("size", 10, "pool size")
	fs.Int("max-size", 0, "hard ceiling of connections (default size)")

	fs.Bool("metrics", false, "serve prometheus metrics")
	fs.String("metrics-addr", ":9090", "metrics listen address")
	return fs
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if v, _ := fs.GetBool("version"); v {
		fmt.Println(app.GetInfo())
		return nil
	}

	// 1. 加载配置
	var cfg Config
	mgr, err := app.LoadConfig(fs, &cfg, flagBindings, config.WithDefaults(defaults))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	// 2. 错误上报
	var logOpts []logger.Option
	if cfg.Sentry.Enabled() {
		sc, err := sentry.New(&cfg.Sentry)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		defer sc.Close()
		logOpts = append(logOpts, logger.WithHooks(sentry.LogHook(sc, zapcore.ErrorLevel)))
	}

	// 3. 初始化日志
	l, err := logger.New(&cfg.Log, logOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	// 4. 组装应用
	application, err := newApp(&cfg, mgr, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		_ = l.Sync()
		return err
	}

	// 5. 运行压测
	if err := application.Run(context.Background()); err != nil {
		l.Error("application exited with error", "error", err)
		return err
	}
	return nil
}
