package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-sqlpool/app/poolbench/internal/bench"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/app"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
	"github.com/lk2023060901/xdooria-sqlpool/pkg/logger"
)

type stubConn struct {
	drv *stubDriver
}

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) Exec(context.Context, string, ...any) (driver.Result, error) {
	return driver.Result{}, nil
}

func (c *stubConn) Query(context.Context, string, ...any) (*driver.Rows, error) {
	return &driver.Rows{Columns: []string{"1"}, Values: [][]any{{int64(1)}}}, nil
}

func (c *stubConn) Close() error {
	c.drv.mu.Lock()
	defer c.drv.mu.Unlock()
	c.drv.closed++
	return nil
}

type stubDriver struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (d *stubDriver) Name() string { return "stub" }

func (d *stubDriver) Open(context.Context) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	return &stubConn{drv: d}, nil
}

func (d *stubDriver) Classify(error) driver.ErrorClass { return driver.ClassUnknown }

func (d *stubDriver) counts() (opened, closed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, d.closed
}

// spyManager 记录 StopWatch 调用次数
type spyManager struct {
	config.Manager
	stops atomic.Int32
}

func (m *spyManager) StopWatch() error {
	m.stops.Add(1)
	return m.Manager.StopWatch()
}

type nopExecutor struct{}

func (nopExecutor) Exec(context.Context, string) error { return nil }

func (nopExecutor) Close() error { return nil }

var (
	stubMu  sync.Mutex
	stubCur *stubDriver
)

func init() {
	driver.Register("stub", func(*driver.DBConfig) (driver.Driver, error) {
		stubMu.Lock()
		defer stubMu.Unlock()
		return stubCur, nil
	})
}

func useStub(t *testing.T) *stubDriver {
	t.Helper()
	d := &stubDriver{}
	stubMu.Lock()
	stubCur = d
	stubMu.Unlock()
	return d
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bench:
  num: 500
  workers: 4
pool:
  size: 8
  db:
    driver: postgres
    host: db
    user: bench
`), 0o644))

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-c", path, "--mode", "one-conn", "-w", "16", "--qps", "200"}))

	var cfg Config
	mgr, err := app.LoadConfig(fs, &cfg, flagBindings, config.WithDefaults(defaults))
	require.NoError(t, err)
	assert.Equal(t, path, mgr.ConfigFile())

	assert.Equal(t, bench.ModeOneConn, cfg.Bench.Mode)
	assert.Equal(t, 500, cfg.Bench.Num)
	assert.Equal(t, 16, cfg.Bench.Workers)
	assert.Equal(t, 200.0, cfg.Bench.QPS)
	assert.Equal(t, 8, cfg.Pool.Size)
	assert.Equal(t, "postgres", cfg.Pool.DB.Driver)
	assert.Equal(t, "db", cfg.Pool.DB.Host)
	assert.Equal(t, "bench", cfg.Pool.DB.User)
}

func TestLoadConfigDefaults(t *testing.T) {
	fs := newFlagSet()
	fs.Lookup(app.ConfigFlag).DefValue = filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, fs.Parse(nil))

	var cfg Config
	_, err := app.LoadConfig(fs, &cfg, flagBindings, config.WithDefaults(defaults))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Pool.DB.Driver)
	assert.Equal(t, "127.0.0.1", cfg.Pool.DB.Host)
	assert.Empty(t, cfg.Bench.Mode)
}

func TestNewApp(t *testing.T) {
	tests := []struct {
		mode       bench.Mode
		wantOpened func(t *testing.T, opened int)
	}{
		{
			mode:       bench.ModePool,
			wantOpened: func(t *testing.T, opened int) { assert.LessOrEqual(t, opened, 2) },
		},
		{
			mode:       bench.ModeOneConn,
			wantOpened: func(t *testing.T, opened int) { assert.Equal(t, 1, opened) },
		},
		{
			mode:       bench.ModeNewConn,
			wantOpened: func(t *testing.T, opened int) { assert.Equal(t, 20, opened) },
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			drv := useStub(t)

			cfg := &Config{}
			cfg.Bench.Mode = tt.mode
			cfg.Bench.Num = 20
			cfg.Bench.Workers = 2
			cfg.Pool.Size = 2
			cfg.Pool.DB = driver.DBConfig{Driver: "stub", Host: "localhost"}

			a, err := newApp(cfg, config.NewManager(), logger.NewNoop())
			require.NoError(t, err)
			require.NoError(t, a.Run(context.Background()))

			opened, closed := drv.counts()
			tt.wantOpened(t, opened)
			assert.Equal(t, opened, closed)
		})
	}
}

// TestWatchConfig 配置文件变化时调整限速，关闭后不再响应
func TestWatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  qps: 100\n"), 0o644))

	mgr := config.NewManager()
	require.NoError(t, mgr.LoadFile(path))

	runner, err := bench.NewRunner(&bench.Config{QPS: 100}, nopExecutor{})
	require.NoError(t, err)

	w, err := watchConfig(mgr, runner, logger.NewNoop())
	require.NoError(t, err)
	require.NotNil(t, w)

	require.NoError(t, os.WriteFile(path, []byte("bench:\n  qps: 250\n"), 0o644))
	assert.Eventually(t, func() bool { return runner.QPS() == 250 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  qps: 10\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 250.0, runner.QPS())

	// 未加载配置文件时不监听
	w, err = watchConfig(config.NewManager(), runner, logger.NewNoop())
	require.NoError(t, err)
	assert.Nil(t, w)
}

// TestNewAppStopsWatcher 应用退出时关闭配置监听
func TestNewAppStopsWatcher(t *testing.T) {
	useStub(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  num: 10\n"), 0o644))

	mgr := &spyManager{Manager: config.NewManager()}
	require.NoError(t, mgr.LoadFile(path))

	cfg := &Config{}
	require.NoError(t, mgr.Unmarshal(cfg))
	cfg.Bench.Workers = 2
	cfg.Pool.Size = 2
	cfg.Pool.DB = driver.DBConfig{Driver: "stub", Host: "localhost"}

	a, err := newApp(cfg, mgr, logger.NewNoop())
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 10, cfg.Bench.Num)
	assert.Equal(t, int32(1), mgr.stops.Load())
}

func TestNewAppInvalid(t *testing.T) {
	cfg := &Config{}
	cfg.Bench.Mode = "threads"

	_, err := newApp(cfg, config.NewManager(), logger.NewNoop())
	assert.ErrorIs(t, err, bench.ErrInvalidConfig)
}

func TestRunFlags(t *testing.T) {
	assert.NoError(t, run([]string{"--version"}))
	assert.NoError(t, run([]string{"--help"}))
	assert.Error(t, run([]string{"--no-such-flag"}))
}
