package prometheus

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.store(&c.counters, name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*prometheus.GaugeVec, error) {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.store(&c.gauges, name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// NewHistogram 创建并注册 Histogram，buckets 为空时使用默认桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*prometheus.HistogramVec, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.store(&c.histograms, name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// GetCounter 获取已注册的 Counter
func (c *Client) GetCounter(name string) (*prometheus.CounterVec, bool) {
	return load[*prometheus.CounterVec](&c.counters, name)
}

// GetGauge 获取已注册的 Gauge
func (c *Client) GetGauge(name string) (*prometheus.GaugeVec, bool) {
	return load[*prometheus.GaugeVec](&c.gauges, name)
}

// GetHistogram 获取已注册的 Histogram
func (c *Client) GetHistogram(name string) (*prometheus.HistogramVec, bool) {
	return load[*prometheus.HistogramVec](&c.histograms, name)
}

// RegisterCollector 注册自定义采集器，如连接池采集器
func (c *Client) RegisterCollector(collector prometheus.Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	if err := c.registry.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return errors.Wrap(ErrMetricExists, err.Error())
		}
		return errors.Wrap(err, "prometheus: register collector")
	}
	return nil
}

// UnregisterCollector 注销采集器
func (c *Client) UnregisterCollector(collector prometheus.Collector) bool {
	return c.registry.Unregister(collector)
}

func (c *Client) store(m *sync.Map, name string, collector prometheus.Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	if _, loaded := m.LoadOrStore(name, collector); loaded {
		return errors.Wrapf(ErrMetricExists, "%s", name)
	}
	if err := c.registry.Register(collector); err != nil {
		m.Delete(name)
		return errors.Wrapf(err, "prometheus: register %s", name)
	}
	return nil
}

func load[T any](m *sync.Map, name string) (T, bool) {
	v, ok := m.Load(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
