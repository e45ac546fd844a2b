package handler

import (
	"github.com/gin-gonic/gin"

	"unibook-api/internal/application/auth"
	"unibook-api/internal/interfaces/http/dto"
	"unibook-api/internal/interfaces/http/middleware"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register 注册
// @Summary 用户注册
// @Description 创建未验证用户并发送 6 位验证码
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.MessageResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		respondError(c, "registration failed", err)
		return
	}

	dto.Created(c, dto.MessageResponse{
		Success: true,
		Message: "Registration successful. Please check your email for verification code.",
	})
}

// Verify 验证邮箱
// @Summary 验证邮箱
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.VerifyRequest true "验证码"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, "verification failed", err)
		return
	}

	dto.Success(c, &dto.AuthResponse{Token: res.Token, User: dto.ToUserResponse(res.User)})
}

// ResendCode 重发验证码
// @Summary 重发验证码
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.ResendCodeRequest true "邮箱"
// @Success 200 {object} dto.Response[dto.MessageResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req dto.ResendCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	verified, err := h.auth.ResendCode(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, "resend code failed", err)
		return
	}

	msg := "Verification code resent"
	if verified {
		msg = "User already verified"
	}
	dto.Success(c, dto.MessageResponse{Success: true, Message: msg})
}

// Login 登录
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "login failed", err)
		return
	}

	dto.Success(c, &dto.AuthResponse{Token: res.Token, User: dto.ToUserResponse(res.User)})
}

// Me 当前用户
// @Summary 获取当前用户
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, "failed to load current user", err)
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}
