package handler

import (
	"github.com/gin-gonic/gin"

	"unibook-api/internal/application/admin"
	"unibook-api/internal/application/book"
	"unibook-api/internal/interfaces/http/dto"
	"unibook-api/internal/interfaces/http/middleware"
)

const adminPageSize = 100

// AdminHandler 管理端处理器
type AdminHandler struct {
	admin *admin.Service
	books *book.Service
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(adminService *admin.Service, books *book.Service) *AdminHandler {
	return &AdminHandler{admin: adminService, books: books}
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量，默认 100"
// @Success 200 {object} dto.Response[[]dto.UserResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	result, err := h.admin.ListUsers(c.Request.Context(), dto.BindPageWithDefault(c, adminPageSize))
	if err != nil {
		respondError(c, "failed to list users", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToUserListResponse(result.Items), dto.NewPageMeta(result))
}

// DeleteUser 删除用户及其书籍
// @Summary 删除用户
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户 ID"
// @Success 200 {object} dto.Response[dto.DeleteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.admin.DeleteUser(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, "failed to delete user", err)
		return
	}
	dto.Success(c, dto.DeleteResponse{Success: true, ID: id})
}

// ListBooks 全部书籍
// @Summary 全部书籍
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response[[]dto.BookResponse]
// @Router /api/v1/admin/books [get]
func (h *AdminHandler) ListBooks(c *gin.Context) {
	result, err := h.books.ListAll(c.Request.Context(), dto.BindPageWithDefault(c, adminPageSize))
	if err != nil {
		respondError(c, "failed to list books", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToBookListResponse(result.Items), dto.NewPageMeta(result))
}

// DeleteBook 删除任意书籍
// @Summary 删除书籍（管理端）
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.DeleteResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/admin/books/{id} [delete]
func (h *AdminHandler) DeleteBook(c *gin.Context) {
	id := dto.BindBookID(c)
	if err := h.books.DeleteAny(c.Request.Context(), id); err != nil {
		respondError(c, "failed to delete book", err)
		return
	}
	dto.Success(c, dto.DeleteResponse{Success: true, ID: id})
}
