package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDisabled 未启用时返回 noop tracer
func TestNewDisabled(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.Equal(t, "sqlpool", p.Config().ServiceName)

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Close())
	assert.True(t, errors.Is(p.Close(), ErrProviderClosed))
}

// TestNewStdout stdout 导出器输出 span
func TestNewStdout(t *testing.T) {
	buf := &bytes.Buffer{}
	p, err := New(&Config{
		Enabled:      true,
		ServiceName:  "poolbench",
		ExporterType: ExporterTypeStdout,
		Sampler:      SamplerConfig{Type: SamplerTypeAlways},
		Writer:       buf,
	})
	require.NoError(t, err)
	assert.True(t, p.IsEnabled())

	_, span := p.Tracer("test").Start(context.Background(), "sqlpool.GetConnection")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	assert.Contains(t, buf.String(), "sqlpool.GetConnection")
	assert.Contains(t, buf.String(), "poolbench")
	require.NoError(t, p.Shutdown(context.Background()))
}

// TestNewNoopExporter noop 导出器等同未启用
func TestNewNoopExporter(t *testing.T) {
	p, err := New(&Config{Enabled: true, ExporterType: ExporterTypeNoop})
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
}

// TestConfigValidate 测试配置校验
func TestConfigValidate(t *testing.T) {
	_, err := New(&Config{Enabled: true, ExporterType: "zipkin"})
	assert.Error(t, err)

	_, err = New(&Config{Enabled: true, ExporterType: ExporterTypeStdout, Sampler: SamplerConfig{Type: SamplerTypeRatio, Ratio: 1.5}})
	assert.True(t, errors.Is(err, ErrInvalidSamplerRatio))

	cfg := &Config{Enabled: true}
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidServiceName))
	assert.NoError(t, (&Config{}).Validate())
}

// TestCreateSampler 测试采样器选择
func TestCreateSampler(t *testing.T) {
	assert.Contains(t, createSampler(SamplerConfig{Type: SamplerTypeAlways}).Description(), "AlwaysOn")
	assert.Contains(t, createSampler(SamplerConfig{Type: SamplerTypeNever}).Description(), "AlwaysOff")
	assert.Contains(t, createSampler(SamplerConfig{Type: SamplerTypeRatio, Ratio: 0.5}).Description(), "TraceIDRatioBased")
	assert.Contains(t, createSampler(SamplerConfig{}).Description(), "ParentBased")
}
