package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/sqlpool"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/metrics/system"
	promclient "github.com/lk2023060901/xdooria-sqlpool/pkg/prometheus"
)

// 查询结果标签
const (
	resultSuccess   = "success"
	resultExhausted = "exhausted"
	resultFailed    = "failed"
)

// Config 指标配置
type Config struct {
	// System 系统指标采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval" yaml:"system_collect_interval"`
	// SlidingWindow 滑动窗口配置
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// BenchMetrics 压测指标
type BenchMetrics struct {
	config *Config
	mode   string
	client *promclient.Client
	logger logger.Logger

	QueryTotal    *prometheus.CounterVec   // 查询总数（按模式、结果）
	QueryDuration *prometheus.HistogramVec // 查询延迟（按模式）

	pools           *sqlpool.Collector
	systemCollector *system.Collector
	slidingWindow   *sliding.Window
}

// New 创建压测指标并注册到 client
func New(cfg *Config, client *promclient.Client, mode string, l logger.Logger) (*BenchMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "metrics: failed to merge config")
	}

	queryTotal, err := client.NewCounter("bench_queries_total", "Queries issued by the benchmark.", []string{"mode", "result"})
	if err != nil {
		return nil, err
	}
	queryDuration, err := client.NewHistogram("bench_query_duration_seconds", "Query latency in seconds.", []string{"mode"},
		[]float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1})
	if err != nil {
		return nil, err
	}

	pools := sqlpool.NewCollector(client.Config().Namespace)
	if err := client.RegisterCollector(pools); err != nil {
		return nil, err
	}

	sysCollector, err := system.New()
	if err != nil {
		return nil, err
	}
	slidingWindow, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, err
	}

	return &BenchMetrics{
		config:          newCfg,
		mode:            mode,
		client:          client,
		logger:          l.Named("metrics"),
		QueryTotal:      queryTotal,
		QueryDuration:   queryDuration,
		pools:           pools,
		systemCollector: sysCollector,
		slidingWindow:   slidingWindow,
	}, nil
}

// AddPool 导出连接池状态
func (m *BenchMetrics) AddPool(p *sqlpool.Pool) {
	m.pools.Add(p)
}

// Start 启动系统指标采集
func (m *BenchMetrics) Start() error {
	return m.systemCollector.Start(m.config.SystemCollectInterval)
}

// Stop 停止采集并输出进程资源汇总
func (m *BenchMetrics) Stop() error {
	stats := m.systemCollector.Collect()
	m.logger.Info("process usage",
		"cpu_percent", stats.CPUPercent,
		"memory_percent", stats.MemoryPercent,
		"memory_bytes", stats.MemoryBytes,
		"goroutines", stats.Goroutines,
	)
	m.systemCollector.Stop()
	m.slidingWindow.Stop()
	return nil
}

// Observe 记录一次查询
func (m *BenchMetrics) Observe(latency time.Duration, err error) {
	result := resultSuccess
	switch {
	case err == nil:
	case errors.Is(err, sqlpool.ErrPoolExhausted):
		result = resultExhausted
	default:
		result = resultFailed
	}

	m.QueryTotal.WithLabelValues(m.mode, result).Inc()
	m.QueryDuration.WithLabelValues(m.mode).Observe(latency.Seconds())
	m.slidingWindow.Record(latency, err == nil)
}

// Progress 输出最近窗口内的吞吐与延迟
func (m *BenchMetrics) Progress(done, failed int64) {
	stats := m.slidingWindow.GetStats()
	m.logger.Info("progress",
		"done", done,
		"failed", failed,
		"qps", stats.QPS,
		"avg_latency", stats.AvgLatency,
		"max_latency", stats.MaxLatency,
		"success_rate", stats.SuccessRate,
	)
}

// WindowStats 最近窗口的统计
func (m *BenchMetrics) WindowStats() sliding.Stats {
	return m.slidingWindow.GetStats()
}
