// Package book 提供书籍的增删改查与归属校验
package book

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
)

// SessionDiscarder 删除书籍时结束其生成会话
type SessionDiscarder interface {
	Discard(ctx context.Context, bookID string) error
}

// SessionGuard 书籍编辑与生成会话互斥
type SessionGuard interface {
	SessionDiscarder
	// WithSession 在会话锁内执行 fn，step 为当前生成步骤
	WithSession(ctx context.Context, bookID string, fn func(ctx context.Context, step entity.GenerationStep) error) error
}

// CreateInput 创建书籍参数
type CreateInput struct {
	Title        string
	CoverImage   string
	Requirements *entity.BookRequirement
	Outline      []entity.ChapterOutline
	Chapters     []entity.ChapterContent
	Status       string
}

// UpdateInput 部分更新参数，nil 字段保持不变
type UpdateInput struct {
	Title        *string
	CoverImage   *string
	Requirements *entity.BookRequirement
	Outline      *[]entity.ChapterOutline
	Chapters     *[]entity.ChapterContent
	Status       *string
}

// touchesContent 是否修改由生成流程维护的字段
func (in UpdateInput) touchesContent() bool {
	return in.Requirements != nil || in.Outline != nil || in.Chapters != nil || in.Status != nil
}

// Service 书籍服务
type Service struct {
	books    repository.BookRepository
	sessions SessionGuard
}

// NewService 创建书籍服务
func NewService(books repository.BookRepository, sessions SessionGuard) *Service {
	return &Service{books: books, sessions: sessions}
}

// List 获取用户自己的书籍
func (s *Service) List(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	return s.books.ListByUser(ctx, userID, pagination)
}

// Get 获取书籍并校验归属
func (s *Service) Get(ctx context.Context, userID, bookID string) (*entity.Book, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrBookNotFound
	}
	if !book.IsOwnedBy(userID) {
		return nil, apperrors.ErrForbidden.WithDetail("not authorized to access this book")
	}
	return book, nil
}

// Create 创建书籍
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*entity.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("title is required")
	}

	book := entity.NewBook(userID, title)
	book.CoverImage = in.CoverImage
	book.Requirements = in.Requirements
	if in.Outline != nil {
		book.Outline = datatypes.JSONSlice[entity.ChapterOutline](in.Outline)
	}
	if in.Chapters != nil {
		book.Chapters = datatypes.JSONSlice[entity.ChapterContent](in.Chapters)
	}
	if in.Status != "" {
		status := entity.BookStatus(in.Status)
		if !status.IsValid() {
			return nil, apperrors.ErrInvalidParam.WithDetailf("invalid status %q", in.Status)
		}
		book.Status = status
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	logger.Info(ctx, "book created", "book_id", book.ID)
	return book, nil
}

// Update 部分更新书籍，只写入提交的字段
// 生成进行中时需求、大纲、章节与状态由生成流程维护，不允许直接修改
func (s *Service) Update(ctx context.Context, userID, bookID string, in UpdateInput) (*entity.Book, error) {
	var updated *entity.Book
	err := s.withSession(ctx, bookID, func(ctx context.Context, step entity.GenerationStep) error {
		book, err := s.Get(ctx, userID, bookID)
		if err != nil {
			return err
		}
		if in.touchesContent() && step.IsActive() {
			return apperrors.ErrIllegalTransition.WithDetailf("book content is locked while generation is %s", step)
		}

		columns, err := applyUpdate(book, in)
		if err != nil {
			return err
		}
		if len(columns) > 0 {
			book.UpdatedAt = time.Now()
			if err := s.books.UpdateColumns(ctx, book, append(columns, "updated_at")...); err != nil {
				return err
			}
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyUpdate 写入提交的字段，返回需要更新的列
func applyUpdate(book *entity.Book, in UpdateInput) ([]string, error) {
	var columns []string
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.ErrInvalidParam.WithDetail("title must not be empty")
		}
		book.Title = title
		columns = append(columns, "title")
	}
	if in.CoverImage != nil {
		book.CoverImage = *in.CoverImage
		columns = append(columns, "cover_image")
	}
	if in.Requirements != nil {
		book.Requirements = in.Requirements
		columns = append(columns, "requirements")
	}
	if in.Outline != nil {
		book.Outline = datatypes.JSONSlice[entity.ChapterOutline](*in.Outline)
		columns = append(columns, "outline")
	}
	if in.Chapters != nil {
		book.Chapters = datatypes.JSONSlice[entity.ChapterContent](*in.Chapters)
		columns = append(columns, "chapters")
	}
	if in.Status != nil {
		status := entity.BookStatus(*in.Status)
		if !status.IsValid() {
			return nil, apperrors.ErrInvalidParam.WithDetailf("invalid status %q", *in.Status)
		}
		book.Status = status
		columns = append(columns, "status")
	}
	return columns, nil
}

func (s *Service) withSession(ctx context.Context, bookID string, fn func(ctx context.Context, step entity.GenerationStep) error) error {
	if s.sessions == nil {
		return fn(ctx, entity.GenerationStepIdle)
	}
	return s.sessions.WithSession(ctx, bookID, fn)
}

// Delete 删除自己的书籍
func (s *Service) Delete(ctx context.Context, userID, bookID string) error {
	if _, err := s.Get(ctx, userID, bookID); err != nil {
		return err
	}
	return s.remove(ctx, bookID)
}

// ListAll 获取全部书籍（管理端）
func (s *Service) ListAll(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Book], error) {
	return s.books.List(ctx, pagination)
}

// DeleteAny 删除任意书籍（管理端，不校验归属）
func (s *Service) DeleteAny(ctx context.Context, bookID string) error {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if book == nil {
		return apperrors.ErrBookNotFound
	}
	return s.remove(ctx, bookID)
}

func (s *Service) remove(ctx context.Context, bookID string) error {
	if err := s.books.Delete(ctx, bookID); err != nil {
		return err
	}
	DiscardSessions(ctx, s.sessions, bookID)
	logger.Info(ctx, "book deleted", "book_id", bookID)
	return nil
}

// DiscardSessions 结束书籍的生成会话，失败只记录日志
func DiscardSessions(ctx context.Context, sessions SessionDiscarder, bookIDs ...string) {
	if sessions == nil {
		return
	}
	for _, id := range bookIDs {
		if err := sessions.Discard(ctx, id); err != nil {
			logger.Warn(ctx, "failed to discard generation session", "book_id", id, "error", err.Error())
		}
	}
}
