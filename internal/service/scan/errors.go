// 错误分类
// 上报处理过程中的错误类型: 校验错误(整批拒绝)、批次致命错误(存储不可用)、单主机持久化错误
package scan

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmptyDeviceList 上报中没有任何设备条目
var ErrEmptyDeviceList = errors.New("missing or empty device list")

// ValidationError 报文校验错误，列出全部问题
type ValidationError struct {
	Message  string   // 概要
	Problems []string // 每条问题一行
	Rejected int      // 被整条丢弃的设备条目数
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Problems, "; "))
}

// Is 空设备列表与 ErrEmptyDeviceList 等价
func (e *ValidationError) Is(target error) bool {
	return target == ErrEmptyDeviceList && e.Message == ErrEmptyDeviceList.Error()
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) empty() bool {
	return len(e.Problems) == 0
}

// FatalBatchError 存储不可达等导致整批中止的错误
type FatalBatchError struct {
	Processed int // 中止前已提交的主机数
	Err       error
}

// Error 实现 error 接口
func (e *FatalBatchError) Error() string {
	return fmt.Sprintf("batch aborted after %d hosts: %v", e.Processed, e.Err)
}

// Unwrap 返回底层错误
func (e *FatalBatchError) Unwrap() error {
	return e.Err
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsFatalBatchError 判断是否为批次致命错误
func IsFatalBatchError(err error) bool {
	var fe *FatalBatchError
	return errors.As(err, &fe)
}

// ErrorType 持久化错误类型
type ErrorType int

const (
	ErrorTypeUnknown    ErrorType = iota
	ErrorTypeTransient            // 连接类错误，需要确认存储是否还可用
	ErrorTypePersistent           // 数据/语句错误，只影响当前主机
)

// ClassifyError 根据驱动错误码分类
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	// 1. 连接已失效
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTransient
	}

	// 2. MySQL 错误码
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1040, // ER_CON_COUNT_ERROR
			1053, // ER_SERVER_SHUTDOWN
			1205, // ER_LOCK_WAIT_TIMEOUT
			1213, // ER_LOCK_DEADLOCK
			2002, // CR_CONNECTION_ERROR
			2003, // CR_CONN_HOST_ERROR
			2006, // CR_SERVER_GONE_ERROR
			2013: // CR_SERVER_LOST
			return ErrorTypeTransient

		case 1054, // ER_BAD_FIELD_ERROR
			1062, // ER_DUP_ENTRY
			1064, // ER_PARSE_ERROR
			1146, // ER_NO_SUCH_TABLE
			1292, // ER_TRUNCATED_WRONG_VALUE
			1406, // ER_DATA_TOO_LONG
			1451, // ER_ROW_IS_REFERENCED_2
			1452: // ER_NO_REFERENCED_ROW_2
			return ErrorTypePersistent
		}
	}

	// 3. 网络错误
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTypeTransient
	}

	return ErrorTypeUnknown
}

// IsTransient 判断是否为连接类错误
func IsTransient(err error) bool {
	return ClassifyError(err) == ErrorTypeTransient
}
