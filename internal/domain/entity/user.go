// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "unibook-api/pkg/errors"
)

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

// User 用户实体
type User struct {
	ID                    string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email                 string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash          string     `json:"-" gorm:"not null"`
	Name                  string     `json:"name,omitempty" gorm:"type:varchar(255)"`
	Role                  UserRole   `json:"role" gorm:"type:varchar(16);not null;default:member"`
	IsVerified            bool       `json:"isVerified" gorm:"not null;default:false"`
	VerificationCode      string     `json:"-" gorm:"type:varchar(16)"`
	VerificationExpiresAt *time.Time `json:"-"`
	LastLoginAt           *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// NewUser 创建新用户（未验证）
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		Role:      UserRoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin 检查用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// SetPassword 设置并散列密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IssueVerificationCode 设置新的验证码及过期时间
func (u *User) IssueVerificationCode(code string, ttl time.Duration, now time.Time) {
	expires := now.Add(ttl)
	u.VerificationCode = code
	u.VerificationExpiresAt = &expires
}

// Verify 校验验证码并将用户标记为已验证
// 已验证的用户直接返回 nil
func (u *User) Verify(code string, now time.Time) error {
	if u.IsVerified {
		return nil
	}
	if u.VerificationCode == "" || u.VerificationCode != strings.TrimSpace(code) {
		return apperrors.ErrInvalidCode
	}
	if u.VerificationExpiresAt != nil && now.After(*u.VerificationExpiresAt) {
		return apperrors.ErrCodeExpired
	}
	u.IsVerified = true
	u.VerificationCode = ""
	u.VerificationExpiresAt = nil
	return nil
}

// Promote 提升为管理员，已是管理员时返回 false
func (u *User) Promote() bool {
	if u.Role == UserRoleAdmin {
		return false
	}
	u.Role = UserRoleAdmin
	return true
}
