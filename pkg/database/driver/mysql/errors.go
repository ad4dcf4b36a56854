package mysql

import (
	"github.com/cockroachdb/errors"
	gomysql "github.com/go-sql-driver/mysql"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// 服务端错误码 -> 类别
// 参考 MySQL Server Error Message Reference
var numberClasses = map[uint16]driver.ErrorClass{
	// 语法、对象不存在
	1054: driver.ClassProgramming, // ER_BAD_FIELD_ERROR
	1064: driver.ClassProgramming, // ER_PARSE_ERROR
	1146: driver.ClassProgramming, // ER_NO_SUCH_TABLE
	1149: driver.ClassProgramming, // ER_SYNTAX_ERROR
	1305: driver.ClassProgramming, // ER_SP_DOES_NOT_EXIST

	// 约束
	1048: driver.ClassIntegrity, // ER_BAD_NULL_ERROR
	1062: driver.ClassIntegrity, // ER_DUP_ENTRY
	1169: driver.ClassIntegrity, // ER_DUP_UNIQUE
	1216: driver.ClassIntegrity, // ER_NO_REFERENCED_ROW
	1217: driver.ClassIntegrity, // ER_ROW_IS_REFERENCED
	1451: driver.ClassIntegrity, // ER_ROW_IS_REFERENCED_2
	1452: driver.ClassIntegrity, // ER_NO_REFERENCED_ROW_2

	// 权限
	1044: driver.ClassAccess, // ER_DBACCESS_DENIED_ERROR
	1045: driver.ClassAccess, // ER_ACCESS_DENIED_ERROR
	1142: driver.ClassAccess, // ER_TABLEACCESS_DENIED_ERROR
	1143: driver.ClassAccess, // ER_COLUMNACCESS_DENIED_ERROR
	1227: driver.ClassAccess, // ER_SPECIFIC_ACCESS_DENIED_ERROR
	1370: driver.ClassAccess, // ER_PROCACCESS_DENIED_ERROR

	// 不支持
	1235: driver.ClassNotSupported, // ER_NOT_SUPPORTED_YET
	1295: driver.ClassNotSupported, // ER_UNSUPPORTED_PS

	// 数据
	1264: driver.ClassData, // ER_WARN_DATA_OUT_OF_RANGE
	1265: driver.ClassData, // WARN_DATA_TRUNCATED
	1292: driver.ClassData, // ER_TRUNCATED_WRONG_VALUE
	1365: driver.ClassData, // ER_DIVISION_BY_ZERO
	1366: driver.ClassData, // ER_TRUNCATED_WRONG_VALUE_FOR_FIELD
	1406: driver.ClassData, // ER_DATA_TOO_LONG

	// 事务
	1205: driver.ClassTransaction, // ER_LOCK_WAIT_TIMEOUT
	1213: driver.ClassTransaction, // ER_LOCK_DEADLOCK

	// 会话级故障
	1040: driver.ClassOperational, // ER_CON_COUNT_ERROR
	1053: driver.ClassOperational, // ER_SERVER_SHUTDOWN
	1152: driver.ClassOperational, // ER_ABORTING_CONNECTION
	1158: driver.ClassOperational, // ER_NET_READ_ERROR
	1159: driver.ClassOperational, // ER_NET_READ_INTERRUPTED
	1160: driver.ClassOperational, // ER_NET_ERROR_ON_WRITE
	1161: driver.ClassOperational, // ER_NET_WRITE_INTERRUPTED
	1317: driver.ClassOperational, // ER_QUERY_INTERRUPTED
	1927: driver.ClassOperational, // ER_CONNECTION_KILLED
	2006: driver.ClassOperational, // CR_SERVER_GONE_ERROR
	2013: driver.ClassOperational, // CR_SERVER_LOST
}

// 客户端协议错误
var protocolErrors = []error{
	gomysql.ErrMalformPkt,
	gomysql.ErrPktSync,
	gomysql.ErrPktSyncMul,
	gomysql.ErrPktTooLarge,
	gomysql.ErrBusyBuffer,
}

// Classify 将 go-sql-driver 错误映射为错误类别
func Classify(err error) driver.ErrorClass {
	if err == nil {
		return driver.ClassUnknown
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		if class, ok := numberClasses[myErr.Number]; ok {
			return class
		}
		return driver.ClassUnknown
	}

	if errors.Is(err, gomysql.ErrInvalidConn) {
		return driver.ClassIO
	}
	for _, target := range protocolErrors {
		if errors.Is(err, target) {
			return driver.ClassProtocol
		}
	}

	if class, ok := driver.ClassifyCommon(err); ok {
		return class
	}
	return driver.ClassUnknown
}
