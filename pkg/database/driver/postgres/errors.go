package postgres

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

// SQLSTATE 前两位（class）-> 类别
var sqlStateClasses = map[string]driver.ErrorClass{
	"0A": driver.ClassNotSupported, // feature_not_supported
	"08": driver.ClassIO,           // connection_exception
	"22": driver.ClassData,         // data_exception
	"23": driver.ClassIntegrity,    // integrity_constraint_violation
	"28": driver.ClassAccess,       // invalid_authorization_specification
	"40": driver.ClassTransaction,  // transaction_rollback
	"42": driver.ClassProgramming,  // syntax_error_or_access_rule_violation
	"53": driver.ClassOperational,  // insufficient_resources
	"57": driver.ClassOperational,  // operator_intervention
	"58": driver.ClassOperational,  // system_error
	"XX": driver.ClassOperational,  // internal_error
}

// 精确匹配优先于 class
var sqlStateCodes = map[string]driver.ErrorClass{
	"42501": driver.ClassAccess, // insufficient_privilege
}

// Classify 将 pgx 错误映射为错误类别
func Classify(err error) driver.ErrorClass {
	if err == nil {
		return driver.ClassUnknown
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return driver.ClassIO
	}

	if pgconn.Timeout(err) {
		return driver.ClassOperational
	}

	if class, ok := driver.ClassifyCommon(err); ok {
		return class
	}
	return driver.ClassUnknown
}

func classifySQLState(code string) driver.ErrorClass {
	code = strings.ToUpper(code)
	if class, ok := sqlStateCodes[code]; ok {
		return class
	}
	if len(code) < 2 {
		return driver.ClassUnknown
	}
	if class, ok := sqlStateClasses[code[:2]]; ok {
		return class
	}
	return driver.ClassUnknown
}
