package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector 定期采集当前进程的资源占用
type Collector struct {
	proc    *process.Process
	mu      sync.RWMutex
	stats   Stats
	pool    *ants.Pool
	stopCh  chan struct{}
	running bool
}

// Stats 进程资源快照
type Stats struct {
	CPUPercent    float64   `json:"cpu_percent"`    // 0-100 * 核数
	MemoryPercent float64   `json:"memory_percent"` // 0-100
	MemoryBytes   uint64    `json:"memory_bytes"`   // RSS
	Goroutines    int       `json:"goroutines"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New 创建当前进程的采集器
func New() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "system: open process")
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, errors.Wrap(err, "system: create pool")
	}

	return &Collector{
		proc:   proc,
		pool:   pool,
		stopCh: make(chan struct{}),
	}, nil
}

// Start 立即采集一次，之后每 interval 采集一次
func (c *Collector) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	c.Collect()

	return c.pool.Submit(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				return
			}
		}
	})
}

// Stop 停止采集
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopCh)
		c.running = false
	}
	c.pool.Release()
}

// Collect 采集一次，失败的项保持为零
func (c *Collector) Collect() Stats {
	var stats Stats

	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}

	if memInfo, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = memInfo.RSS
		if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(memInfo.RSS) / float64(vm.Total) * 100
		}
	}

	stats.Goroutines = runtime.NumGoroutine()
	stats.UpdatedAt = time.Now()

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats
}

// GetStats 最近一次采集结果
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
