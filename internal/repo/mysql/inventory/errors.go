package inventory

import (
	"errors"
	"fmt"

	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// SQLite 扩展错误码，主码 19 (SQLITE_CONSTRAINT) 同时覆盖 NOT NULL / CHECK / 外键，不能当作唯一冲突
const (
	sqliteConstraintPrimaryKey = 1555 // SQLITE_CONSTRAINT_PRIMARYKEY
	sqliteConstraintUnique     = 2067 // SQLITE_CONSTRAINT_UNIQUE
)

// isDuplicateKey 根据驱动错误码判断是否为唯一约束冲突
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	// 1. gorm 已翻译 (TranslateError: true)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// 2. MySQL ER_DUP_ENTRY
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	// 3. SQLite 驱动错误暴露 Code()
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}

	return false
}

// translateError 把唯一约束冲突包装为 repo.ErrDuplicateKey，其它错误原样返回
func translateError(err error) error {
	if isDuplicateKey(err) {
		return fmt.Errorf("%w: %v", repo.ErrDuplicateKey, err)
	}
	return err
}
