package dto

import (
	"time"

	"unibook-api/internal/domain/entity"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

// VerifyRequest 邮箱验证请求
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// ResendCodeRequest 重发验证码请求
type ResendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MessageResponse 仅包含提示信息的响应
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserResponse 用户信息
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
	IsVerified  bool   `json:"isVerified"`
	CreatedAt   int64  `json:"createdAt"`
	LastLoginAt *int64 `json:"lastLoginAt,omitempty"`
}

// AuthResponse 登录/验证成功响应
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// ToUserResponse 转换用户实体
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt.UnixMilli(),
	}
	if u.LastLoginAt != nil {
		resp.LastLoginAt = millis(*u.LastLoginAt)
	}
	return resp
}

// ToUserListResponse 转换用户列表
func ToUserListResponse(users []*entity.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserResponse(u))
	}
	return out
}

func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
