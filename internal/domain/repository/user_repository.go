// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"unibook-api/internal/domain/entity"
)

// UserRepository 用户仓储接口
// 查询不到记录时返回 (nil, nil)
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// GetByEmail 根据邮箱获取用户
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// Update 更新用户
	Update(ctx context.Context, user *entity.User) error

	// Delete 删除用户
	Delete(ctx context.Context, id string) error

	// List 分页获取全部用户
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.User], error)

	// UpdateLastLogin 更新最后登录时间
	UpdateLastLogin(ctx context.Context, id string) error

	// ExistsByEmail 检查邮箱是否存在
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
