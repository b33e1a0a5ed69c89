package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/repo"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// codedError 模拟 SQLite 驱动暴露 Code() 的错误
type codedError struct {
	code int
}

func (e codedError) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e codedError) Code() int     { return e.code }

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm_translated", gorm.ErrDuplicatedKey, true},
		{"mysql_dup_entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql_not_null", &mysql.MySQLError{Number: 1048, Message: "Column cannot be null"}, false},
		{"sqlite_unique", codedError{code: 2067}, true},
		{"sqlite_primary_key", codedError{code: 1555}, true},
		{"sqlite_generic_constraint", codedError{code: 19}, false},
		{"sqlite_not_null", codedError{code: 1299}, false},
		{"sqlite_foreign_key", codedError{code: 787}, false},
		{"wrapped_sqlite_unique", fmt.Errorf("insert: %w", codedError{code: 2067}), true},
		{"plain", errors.New("UNIQUE constraint failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKey(tt.err))
		})
	}
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError(codedError{code: 2067}), repo.ErrDuplicateKey)

	notNull := codedError{code: 1299}
	assert.Equal(t, error(notNull), translateError(notNull))
}
