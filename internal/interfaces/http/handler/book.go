package handler

import (
	"github.com/gin-gonic/gin"

	"unibook-api/internal/application/book"
	"unibook-api/internal/interfaces/http/dto"
	"unibook-api/internal/interfaces/http/middleware"
)

// BookHandler 书籍处理器
type BookHandler struct {
	books *book.Service
}

// NewBookHandler 创建书籍处理器
func NewBookHandler(books *book.Service) *BookHandler {
	return &BookHandler{books: books}
}

// ListBooks 获取自己的书籍
// @Summary 获取书籍列表
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.BookResponse]
// @Router /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	result, err := h.books.List(c.Request.Context(), middleware.CurrentUserID(c), dto.BindPage(c))
	if err != nil {
		respondError(c, "failed to list books", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToBookListResponse(result.Items), dto.NewPageMeta(result))
}

// GetBook 获取书籍详情
// @Summary 获取书籍详情
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	b, err := h.books.Get(c.Request.Context(), middleware.CurrentUserID(c), dto.BindBookID(c))
	if err != nil {
		respondError(c, "failed to get book", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(b))
}

// CreateBook 创建书籍
// @Summary 创建书籍
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateBookRequest true "书籍信息"
// @Success 201 {object} dto.Response[dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.books.Create(c.Request.Context(), middleware.CurrentUserID(c), req.ToInput())
	if err != nil {
		respondError(c, "failed to create book", err)
		return
	}
	dto.Created(c, dto.ToBookResponse(b))
}

// UpdateBook 部分更新书籍
// @Summary 更新书籍
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Param body body dto.UpdateBookRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	var req dto.UpdateBookRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.books.Update(c.Request.Context(), middleware.CurrentUserID(c), dto.BindBookID(c), req.ToInput())
	if err != nil {
		respondError(c, "failed to update book", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(b))
}

// DeleteBook 删除书籍
// @Summary 删除书籍
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.DeleteResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id := dto.BindBookID(c)
	if err := h.books.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, "failed to delete book", err)
		return
	}
	dto.Success(c, dto.DeleteResponse{Success: true, ID: id})
}
