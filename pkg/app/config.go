package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/config"
)

const (
	// EnvPrefix 环境变量前缀，SQLPOOL_POOL_SIZE 对应 pool.size
	EnvPrefix = "SQLPOOL"

	// ConfigFlag 指定配置文件的命令行参数
	ConfigFlag = "config"
)

// LoadConfig 按 命令行 > 环境变量 > 配置文件 > 默认值 加载配置到 target
//
// fs 需已解析。bindings 为 flag 名到配置 key 的映射，只有显式设置的 flag 参与覆盖。
// 配置文件依次取 --config、SQLPOOL_CONFIG、可执行文件目录下的 config.yaml，
// 前两者指定的文件必须存在，默认文件不存在时跳过。
func LoadConfig(fs *pflag.FlagSet, target any, bindings map[string]string, opts ...config.Option) (config.Manager, error) {
	// 文件中没有出现的 key 也能从环境变量解析到 target
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// SQLPOOL_POOL_RETRY_NUM -> pool.retry_num
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	for name, key := range bindings {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, errors.Wrapf(err, "app: bind flag --%s", name)
		}
	}

	// WithViper 必须在其他选项之前生效
	mgr := config.NewManager(append([]config.Option{config.WithViper(v)}, opts...)...)

	path, required := configPath(fs)
	if path != "" {
		err := mgr.LoadFile(path)
		switch {
		case err == nil:
		case !required && errors.Is(err, config.ErrConfigFileNotFound):
		default:
			return nil, err
		}
	}

	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}
	return mgr, nil
}

// configPath 返回配置文件路径，以及该文件是否必须存在
func configPath(fs *pflag.FlagSet) (string, bool) {
	if f := fs.Lookup(ConfigFlag); f != nil && f.Changed {
		return f.Value.String(), true
	}
	if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
		return env, true
	}
	if f := fs.Lookup(ConfigFlag); f != nil && f.DefValue != "" {
		return f.DefValue, false
	}
	dir, err := ExecDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "config.yaml"), false
}

// ExecDir 可执行文件所在目录（处理符号链接）
func ExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}
