// Package auth 提供注册、邮箱验证与登录
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
	"unibook-api/pkg/metrics"
	"unibook-api/pkg/utils"
)

const defaultCodeTTL = 5 * time.Minute

// CodeSender 验证码发送接口，实现方需异步发送
type CodeSender interface {
	SendVerificationCode(ctx context.Context, to, code string)
}

// AdminPolicy 判断邮箱是否应提升为管理员
type AdminPolicy func(email string) bool

// Result 认证结果
type Result struct {
	Token string
	User  *entity.User
}

// Service 认证服务
type Service struct {
	users   repository.UserRepository
	jwt     *utils.JWTManager
	sender  CodeSender
	isAdmin AdminPolicy
	codeTTL time.Duration

	now     func() time.Time
	newCode func() (string, error)
}

// NewService 创建认证服务
func NewService(users repository.UserRepository, jwt *utils.JWTManager, sender CodeSender, isAdmin AdminPolicy, codeTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Service{
		users:   users,
		jwt:     jwt,
		sender:  sender,
		isAdmin: isAdmin,
		codeTTL: codeTTL,
		now:     time.Now,
		newCode: utils.GenerateVerificationCode,
	}
}

// Register 创建未验证用户并发送验证码
func (s *Service) Register(ctx context.Context, email, password, name string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "duplicate").Inc()
		return nil, apperrors.ErrEmailRegistered
	}

	user := entity.NewUser(email, name)
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	user.IssueVerificationCode(code, s.codeTTL, s.now())

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sender.SendVerificationCode(ctx, user.Email, code)
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Verify 校验验证码，成功后签发令牌；已验证用户直接签发
func (s *Service) Verify(ctx context.Context, email, code string) (*Result, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	if !user.IsVerified {
		if err := user.Verify(code, s.now()); err != nil {
			metrics.AuthAttemptsTotal.WithLabelValues("verify", "rejected").Inc()
			return nil, err
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	metrics.AuthAttemptsTotal.WithLabelValues("verify", "success").Inc()
	return s.issue(user)
}

// ResendCode 重新发送验证码；已验证返回 true
func (s *Service) ResendCode(ctx context.Context, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, apperrors.ErrUserNotFound
	}
	if user.IsVerified {
		return true, nil
	}

	code, err := s.newCode()
	if err != nil {
		return false, fmt.Errorf("generate code: %w", err)
	}
	user.IssueVerificationCode(code, s.codeTTL, s.now())
	if err := s.users.Update(ctx, user); err != nil {
		return false, err
	}

	s.sender.SendVerificationCode(ctx, user.Email, code)
	return false, nil
}

// Login 校验密码并签发令牌；管理员邮箱在登录时提升角色
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "bad_credentials").Inc()
		return nil, apperrors.ErrBadCredentials
	}
	if !user.IsVerified {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "unverified").Inc()
		return nil, apperrors.ErrEmailNotVerified
	}

	if s.isAdmin(user.Email) && user.Promote() {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		logger.Info(ctx, "user promoted to admin", "user_id", user.ID)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err.Error(), "user_id", user.ID)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return s.issue(user)
}

// CurrentUser 获取令牌对应的用户
func (s *Service) CurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) issue(user *entity.User) (*Result, error) {
	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Result{Token: token, User: user}, nil
}
