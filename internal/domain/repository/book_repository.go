package repository

import (
	"context"

	"unibook-api/internal/domain/entity"
)

// BookRepository 书籍仓储接口
type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 查询不到时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// Update 整体更新书籍，书籍不存在时返回 ErrBookNotFound
	Update(ctx context.Context, book *entity.Book) error

	// UpdateColumns 只更新指定列，书籍不存在时返回 ErrBookNotFound
	UpdateColumns(ctx context.Context, book *entity.Book, columns ...string) error

	Delete(ctx context.Context, id string) error

	// ListByUser 获取用户的书籍，按创建时间倒序
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.Book], error)

	// List 获取全部书籍（管理端）
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Book], error)

	// DeleteByUser 删除用户名下全部书籍，返回被删除的书籍 ID
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
}
