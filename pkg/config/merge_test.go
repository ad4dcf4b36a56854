package config

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeInner struct {
	Host string
	Port int
}

type mergeConfig struct {
	Name     string
	Size     int
	Lifetime time.Duration
	PrePing  bool
	Flag     *bool
	Inner    mergeInner
	InnerPtr *mergeInner
	Params   map[string]string
	Extra    map[string]any
	Keys     []string
	Hook     func() int
	private  int
}

// TestMergeConfig 测试深度合并
func TestMergeConfig(t *testing.T) {
	yes, no := true, false

	dst := &mergeConfig{
		Name:     "default",
		Size:     10,
		Lifetime: time.Hour,
		PrePing:  true,
		Flag:     &yes,
		Inner:    mergeInner{Host: "localhost", Port: 3306},
		Params:   map[string]string{"charset": "utf8", "sslmode": "disable"},
		Extra:    map[string]any{"a": 1},
		Keys:     []string{"password"},
		Hook:     func() int { return 1 },
		private:  1,
	}
	src := &mergeConfig{
		Size:     2,
		Flag:     &no,
		Inner:    mergeInner{Port: 13306},
		InnerPtr: &mergeInner{Host: "replica"},
		Params:   map[string]string{"charset": "utf8mb4"},
		Extra:    map[string]any{"b": "x"},
		Keys:     []string{"secret", "token"},
		private:  2,
	}

	got, err := MergeConfig(dst, src)
	require.NoError(t, err)
	assert.Same(t, dst, got)

	assert.Equal(t, "default", got.Name)
	assert.Equal(t, 2, got.Size)
	assert.Equal(t, time.Hour, got.Lifetime)
	// 零值不覆盖
	assert.True(t, got.PrePing)
	// 指针可以表达 false
	require.NotNil(t, got.Flag)
	assert.False(t, *got.Flag)
	assert.Equal(t, mergeInner{Host: "localhost", Port: 13306}, got.Inner)
	require.NotNil(t, got.InnerPtr)
	assert.Equal(t, "replica", got.InnerPtr.Host)
	assert.Equal(t, map[string]string{"charset": "utf8mb4", "sslmode": "disable"}, got.Params)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, got.Extra)
	assert.Equal(t, []string{"secret", "token"}, got.Keys)
	require.NotNil(t, got.Hook)
	assert.Equal(t, 1, got.Hook())
	assert.Equal(t, 1, got.private)
}

// TestMergeConfigNil 测试 nil 参数
func TestMergeConfigNil(t *testing.T) {
	a := &mergeConfig{Name: "a"}

	got, err := MergeConfig(a, nil)
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = MergeConfig(nil, a)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = MergeConfig[mergeConfig](nil, nil)
	assert.True(t, errors.Is(err, ErrNilConfig))
}

// TestMergeConfigNilDstMap 测试目标 map 为 nil
func TestMergeConfigNilDstMap(t *testing.T) {
	dst := &mergeConfig{}
	_, err := MergeConfig(dst, &mergeConfig{Params: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, "v", dst.Params["k"])
}
