package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
)

// BookRepository 书籍仓储实现
type BookRepository struct {
	client *Client
}

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建书籍
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(book).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取书籍
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	var book entity.Book
	if err := getDB(ctx, r.client.db).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// Update 整体更新已存在的书籍，不会插入新行
func (r *BookRepository) Update(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Update")
	defer span.End()

	if err := r.updateColumns(ctx, book, []string{"*"}); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// UpdateColumns 只更新指定列
func (r *BookRepository) UpdateColumns(ctx context.Context, book *entity.Book, columns ...string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.UpdateColumns")
	defer span.End()

	if len(columns) == 0 {
		return nil
	}
	if err := r.updateColumns(ctx, book, columns); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *BookRepository) updateColumns(ctx context.Context, book *entity.Book, columns []string) error {
	result := getDB(ctx, r.client.db).Model(book).Select(columns).Updates(book)
	if result.Error != nil {
		return fmt.Errorf("failed to update book: %w", result.Error)
	}
	// 书籍已被删除
	if result.RowsAffected == 0 {
		return apperrors.ErrBookNotFound
	}
	return nil
}

// Delete 删除书籍
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Delete")
	defer span.End()

	if err := getDB(ctx, r.client.db).Delete(&entity.Book{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// ListByUser 获取用户书籍列表
func (r *BookRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListByUser")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Book{}).Where("user_id = ?", userID)
	return listBooks(query, pagination, span)
}

// List 获取全部书籍
func (r *BookRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.List")
	defer span.End()

	return listBooks(getDB(ctx, r.client.db).Model(&entity.Book{}), pagination, span)
}

// DeleteByUser 删除用户名下全部书籍
func (r *BookRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var ids []string
	if err := db.Model(&entity.Book{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to collect user books: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := db.Delete(&entity.Book{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to delete user books: %w", err)
	}
	return ids, nil
}

func listBooks(query *gorm.DB, pagination repository.Pagination, span trace.Span) (*repository.PagedResult[*entity.Book], error) {
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	var books []*entity.Book
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&books).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return repository.NewPagedResult(books, total, pagination), nil
}
