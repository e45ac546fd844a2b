// Package admin 提供管理端用户维护
package admin

import (
	"context"

	"unibook-api/internal/application/book"
	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
)

// Service 管理端服务
type Service struct {
	users    repository.UserRepository
	books    repository.BookRepository
	tx       repository.Transactor
	sessions book.SessionDiscarder
}

// NewService 创建管理端服务
func NewService(users repository.UserRepository, books repository.BookRepository, tx repository.Transactor, sessions book.SessionDiscarder) *Service {
	return &Service{users: users, books: books, tx: tx, sessions: sessions}
}

// ListUsers 分页获取用户
func (s *Service) ListUsers(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	return s.users.List(ctx, pagination)
}

// DeleteUser 删除用户及其全部书籍，不能删除自己
func (s *Service) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperrors.ErrCannotDeleteSelf
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}

	var bookIDs []string
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		ids, err := s.books.DeleteByUser(txCtx, userID)
		if err != nil {
			return err
		}
		bookIDs = ids
		return s.users.Delete(txCtx, userID)
	})
	if err != nil {
		return err
	}

	book.DiscardSessions(ctx, s.sessions, bookIDs...)
	logger.Info(ctx, "user deleted by admin", "target_user_id", userID, "books", len(bookIDs))
	return nil
}
