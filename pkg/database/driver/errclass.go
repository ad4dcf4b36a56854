package driver

import (
	"context"
	sqldriver "database/sql/driver"
	"io"
	"net"

	"github.com/cockroachdb/errors"
)

// ErrorClass 驱动错误类别
type ErrorClass int

const (
	// ClassUnknown 无法识别的错误
	ClassUnknown ErrorClass = iota
	// ClassProgramming SQL 语法错误、对象不存在等
	ClassProgramming
	// ClassIntegrity 约束冲突（唯一键、外键、非空）
	ClassIntegrity
	// ClassAccess 当前操作权限不足
	ClassAccess
	// ClassNotSupported 服务端不支持的特性
	ClassNotSupported
	// ClassData 数据越界、类型转换失败
	ClassData
	// ClassTransaction 死锁、锁等待超时、序列化失败
	ClassTransaction
	// ClassIO 网络读写失败、连接断开
	ClassIO
	// ClassProtocol 协议帧错乱
	ClassProtocol
	// ClassOperational 服务端关闭、会话被 kill、超时、取消
	ClassOperational
)

var classNames = map[ErrorClass]string{
	ClassUnknown:      "unknown",
	ClassProgramming:  "programming",
	ClassIntegrity:    "integrity",
	ClassAccess:       "access",
	ClassNotSupported: "not_supported",
	ClassData:         "data",
	ClassTransaction:  "transaction",
	ClassIO:           "io",
	ClassProtocol:     "protocol",
	ClassOperational:  "operational",
}

// String 返回类别名称
func (c ErrorClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Classes 返回全部类别
func Classes() []ErrorClass {
	return []ErrorClass{
		ClassUnknown,
		ClassProgramming,
		ClassIntegrity,
		ClassAccess,
		ClassNotSupported,
		ClassData,
		ClassTransaction,
		ClassIO,
		ClassProtocol,
		ClassOperational,
	}
}

// ClassifyCommon 处理与具体驱动无关的错误
// 第二个返回值表示是否识别
func ClassifyCommon(err error) (ErrorClass, bool) {
	switch {
	case err == nil:
		return ClassUnknown, false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 语句执行到一半被取消，会话状态不确定
		return ClassOperational, true
	case errors.Is(err, sqldriver.ErrBadConn):
		return ClassIO, true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ClassIO, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassIO, true
	}

	return ClassUnknown, false
}
