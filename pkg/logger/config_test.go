package logger

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLevel 测试等级解析
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DebugLevel},
		{in: " INFO ", want: InfoLevel},
		{in: "warning", want: WarnLevel},
		{in: "Error", want: ErrorLevel},
		{in: "fatal", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidLevel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestZapLevel 测试等级映射
func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, DebugLevel.zapLevel())
	assert.Equal(t, zapcore.WarnLevel, WarnLevel.zapLevel())
	assert.Equal(t, zapcore.ErrorLevel, ErrorLevel.zapLevel())
	assert.Equal(t, zapcore.InfoLevel, Level("").zapLevel())
}

// TestConfigValidate 测试配置校验
func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.EnableFile = true
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidOutputPath))

	cfg.OutputPath = "/tmp/sqlpool.log"
	assert.NoError(t, cfg.Validate())

	cfg.Level = "loud"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidLevel))
}

// TestNoOutput 测试没有任何输出时报错
func TestNoOutput(t *testing.T) {
	l := &BaseLogger{config: DefaultConfig(), globalFields: map[string]interface{}{}}
	l.config.EnableConsole = false
	_, err := l.build()
	assert.True(t, errors.Is(err, ErrNoOutputEnabled))
}
