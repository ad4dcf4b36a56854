package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCollector 测试采集当前进程
func TestCollector(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	assert.True(t, c.GetStats().UpdatedAt.IsZero())

	require.NoError(t, c.Start(time.Hour))
	require.NoError(t, c.Start(time.Hour))

	s := c.GetStats()
	assert.False(t, s.UpdatedAt.IsZero())
	assert.Greater(t, s.MemoryBytes, uint64(0))
	assert.Greater(t, s.Goroutines, 0)
	assert.GreaterOrEqual(t, s.CPUPercent, 0.0)

	c.Stop()
	c.Stop()
}
