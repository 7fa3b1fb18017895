package gormpersistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateEntryError(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'debater7' for key 'username'"}
	assert.True(t, isDuplicateEntryError(dup))

	// gorm 包装过的错误也要能识别
	assert.True(t, isDuplicateEntryError(fmt.Errorf("gorm: save user: %w", dup)))

	assert.False(t, isDuplicateEntryError(nil))
	// 其他 MySQL 错误号（外键约束等）不是重复键
	assert.False(t, isDuplicateEntryError(&mysql.MySQLError{Number: 1452}))
	// 只在措辞上像重复键的普通错误不算
	assert.False(t, isDuplicateEntryError(errors.New("Duplicate entry 'x' for key 'y'")))
}
