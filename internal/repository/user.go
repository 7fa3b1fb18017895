package repository

import (
	"context"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// UserRepository 定义账号数据的存取操作。
type UserRepository interface {
	// FindByUsername 根据用户名查找账号，不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID 根据主键查找账号，不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save 保存账号：有主键则更新，否则创建。
	// 唯一约束冲突映射为 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
