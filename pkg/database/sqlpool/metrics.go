package sqlpool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector 按 pool 标签导出连接池状态
type Collector struct {
	mu    sync.RWMutex
	pools map[string]*Pool

	total     *prometheus.Desc
	available *prometheus.Desc
	maxSize   *prometheus.Desc
	created   *prometheus.Desc
	discarded *prometheus.Desc
	replaced  *prometheus.Desc
	borrowed  *prometheus.Desc
	retries   *prometheus.Desc
	exhausted *prometheus.Desc
}

// NewCollector 创建采集器，namespace 为空时使用 "sqlpool"
func NewCollector(namespace string, pools ...*Pool) *Collector {
	if namespace == "" {
		namespace = "sqlpool"
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"pool"}, nil)
	}

	c := &Collector{
		pools:     make(map[string]*Pool),
		total:     desc("connections_total_num", "Connections owned by the pool, idle plus in use."),
		available: desc("connections_available_num", "Idle connections."),
		maxSize:   desc("connections_max_size", "Configured hard ceiling of connections."),
		created:   desc("connections_created_total", "Physical connections opened."),
		discarded: desc("connections_discarded_total", "Connections closed because they expired, failed a ping, broke or the pool closed."),
		replaced:  desc("connections_replaced_total", "Connections opened to replace discarded ones."),
		borrowed:  desc("connections_borrowed_total", "Successful borrows."),
		retries:   desc("get_retries_total", "Borrow retries caused by an exhausted pool."),
		exhausted: desc("get_exhausted_total", "Borrows that failed after using up their retries."),
	}
	for _, p := range pools {
		c.Add(p)
	}
	return c
}

// Add 添加连接池，同名覆盖
func (c *Collector) Add(p *Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[p.Name()] = p
}

// Remove 移除连接池
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pools, name)
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.total, c.available, c.maxSize,
		c.created, c.discarded, c.replaced, c.borrowed, c.retries, c.exhausted,
	} {
		ch <- d
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, p := range c.pools {
		s := p.Stats()
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total), name)
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(s.Available), name)
		ch <- prometheus.MustNewConstMetric(c.maxSize, prometheus.GaugeValue, float64(s.MaxSize), name)
		ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(s.Created), name)
		ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded), name)
		ch <- prometheus.MustNewConstMetric(c.replaced, prometheus.CounterValue, float64(s.Replaced), name)
		ch <- prometheus.MustNewConstMetric(c.borrowed, prometheus.CounterValue, float64(s.Borrowed), name)
		ch <- prometheus.MustNewConstMetric(c.retries, prometheus.CounterValue, float64(s.Retries), name)
		ch <- prometheus.MustNewConstMetric(c.exhausted, prometheus.CounterValue, float64(s.Exhausted), name)
	}
}
