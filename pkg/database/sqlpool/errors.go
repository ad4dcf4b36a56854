package sqlpool

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrPoolExhausted 重试用尽仍无可用连接，具体信息见 *ExhaustedError
	ErrPoolExhausted = errors.New("sqlpool: pool exhausted")

	// ErrMisuse 调用方误用，ErrInvalidConfig、ErrConnReleased、ErrForeignConn 返回时均带此标记
	ErrMisuse = errors.New("sqlpool: misuse")

	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = errors.New("sqlpool: invalid config")

	// ErrConnReleased 连接已归还（重复归还或归还后继续使用）
	ErrConnReleased = errors.New("sqlpool: connection already released")

	// ErrForeignConn 连接不属于该连接池
	ErrForeignConn = errors.New("sqlpool: connection does not belong to this pool")

	// ErrPoolClosed 连接池已关闭
	ErrPoolClosed = errors.New("sqlpool: pool closed")

	// ErrPanicked 使用连接期间发生 panic，连接按不可复用处理
	ErrPanicked = errors.New("sqlpool: panic while using connection")
)

// ExhaustedError 连接池耗尽
type ExhaustedError struct {
	Pool    string // 连接池名称
	Retries int    // 实际重试次数
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("sqlpool: pool %q exhausted after %d retries", e.Pool, e.Retries)
}

// Unwrap 使 errors.Is(err, ErrPoolExhausted) 成立
func (e *ExhaustedError) Unwrap() error {
	return ErrPoolExhausted
}

// misuse 包装 sentinel 并打上 ErrMisuse 标记
// 标记不能直接打在 sentinel 上，否则各 sentinel 之间会互相 Is 成立
func misuse(sentinel error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(sentinel, format, args...), ErrMisuse)
}

// IsExhausted 判断是否为连接池耗尽错误
func IsExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsMisuse 判断是否为误用错误
func IsMisuse(err error) bool {
	return errors.Is(err, ErrMisuse)
}
