package sliding

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	WindowSize  time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size" validate:"gt=0"`
	BucketCount int           `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count" validate:"gt=0"`
}

// DefaultWindowConfig 最近 10 秒，每秒一个桶
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		WindowSize:  10 * time.Second,
		BucketCount: 10,
	}
}

// bucket 时间桶
type bucket struct {
	count      int64
	total      time.Duration
	min        time.Duration
	max        time.Duration
	successCnt int64
	failureCnt int64
	timestamp  time.Time
	used       bool
}

// Window 按时间桶统计最近一段时间的延迟与成功率
type Window struct {
	config *WindowConfig
	mu     sync.RWMutex

	buckets []bucket
	current int

	pool     *ants.Pool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWindow 创建滑动窗口并开始轮转
func NewWindow(cfg *WindowConfig) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "sliding: merge config")
	}
	if err := config.NewValidator().Validate(newCfg); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, errors.Wrap(err, "sliding: create pool")
	}

	w := &Window{
		config:  newCfg,
		buckets: make([]bucket, newCfg.BucketCount),
		pool:    pool,
		stopCh:  make(chan struct{}),
	}

	now := time.Now()
	for i := range w.buckets {
		w.buckets[i].timestamp = now
	}

	interval := newCfg.WindowSize / time.Duration(newCfg.BucketCount)
	if err := w.pool.Submit(func() { w.loop(interval) }); err != nil {
		pool.Release()
		return nil, errors.Wrap(err, "sliding: start rotation")
	}
	return w, nil
}

func (w *Window) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.rotate()
		case <-w.stopCh:
			return
		}
	}
}

// rotate 轮转到下一个桶
func (w *Window) rotate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.current = (w.current + 1) % len(w.buckets)
	w.buckets[w.current] = bucket{timestamp: time.Now()}
}

// Record 记录一次操作
func (w *Window) Record(latency time.Duration, success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := &w.buckets[w.current]
	if !b.used || latency < b.min {
		b.min = latency
	}
	if latency > b.max {
		b.max = latency
	}
	b.count++
	b.total += latency
	b.used = true

	if success {
		b.successCnt++
	} else {
		b.failureCnt++
	}
}

// Stats 窗口统计结果
type Stats struct {
	QPS          float64       `json:"qps"`
	AvgLatency   time.Duration `json:"avg_latency"`
	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
	SuccessRate  float64       `json:"success_rate"` // 0-100
	TotalCount   int64         `json:"total_count"`
	SuccessCount int64         `json:"success_count"`
	FailureCount int64         `json:"failure_count"`
}

// GetStats 汇总窗口内的桶
func (w *Window) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var (
		stats Stats
		total time.Duration
		first = true
	)
	windowStart := time.Now().Add(-w.config.WindowSize)

	for _, b := range w.buckets {
		if !b.used || !b.timestamp.After(windowStart) {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		stats.FailureCount += b.failureCnt
		total += b.total

		if first || b.min < stats.MinLatency {
			stats.MinLatency = b.min
		}
		if b.max > stats.MaxLatency {
			stats.MaxLatency = b.max
		}
		first = false
	}

	stats.QPS = float64(stats.TotalCount) / w.config.WindowSize.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = total / time.Duration(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	return stats
}

// Stop 停止轮转，可重复调用
func (w *Window) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.pool.Release()
	})
}
