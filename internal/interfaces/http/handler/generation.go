package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/application/book"
	"unibook-api/internal/application/generation"
	"unibook-api/internal/domain/entity"
	"unibook-api/internal/interfaces/http/dto"
	"unibook-api/internal/interfaces/http/middleware"
	apperrors "unibook-api/pkg/errors"
)

// GenerationHandler 生成流程处理器
// 外部 Agent 在每一步产出后调用对应接口推进状态机
type GenerationHandler struct {
	books      *book.Service
	generation *generation.Service
}

// NewGenerationHandler 创建生成流程处理器
func NewGenerationHandler(books *book.Service, gen *generation.Service) *GenerationHandler {
	return &GenerationHandler{books: books, generation: gen}
}

// GetStatus 查询生成状态
// @Summary 查询生成状态
// @Tags Generation
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Router /api/v1/books/{id}/generation [get]
func (h *GenerationHandler) GetStatus(c *gin.Context) {
	bookID, ok := h.authorize(c)
	if !ok {
		return
	}
	status, err := h.generation.Status(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, "failed to load generation status", err)
		return
	}
	dto.Success(c, dto.ToGenerationStatusResponse(status))
}

// Start 开始收集需求
// @Summary 开始生成
// @Tags Generation
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Failure 409 {object} dto.GenerationErrorResponse
// @Router /api/v1/books/{id}/generation/start [post]
func (h *GenerationHandler) Start(c *gin.Context) {
	h.transition(c, func(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
		return h.generation.Start(ctx, bookID)
	})
}

// SubmitRequirement 提交需求
// @Summary 提交需求
// @Tags Generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Param body body entity.BookRequirement true "需求"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Failure 409 {object} dto.GenerationErrorResponse
// @Failure 422 {object} dto.GenerationErrorResponse
// @Router /api/v1/books/{id}/generation/requirement [post]
func (h *GenerationHandler) SubmitRequirement(c *gin.Context) {
	var req entity.BookRequirement
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
		return h.generation.SubmitRequirement(ctx, bookID, req)
	})
}

// SubmitOutline 提交大纲
// @Summary 提交大纲
// @Tags Generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Param body body dto.SubmitOutlineRequest true "大纲"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Failure 409 {object} dto.GenerationErrorResponse
// @Failure 422 {object} dto.GenerationErrorResponse
// @Router /api/v1/books/{id}/generation/outline [post]
func (h *GenerationHandler) SubmitOutline(c *gin.Context) {
	var req dto.SubmitOutlineRequest
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
		return h.generation.SubmitOutline(ctx, bookID, req.Outline)
	})
}

// SubmitChapter 提交章节
// @Summary 提交章节
// @Tags Generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Param body body entity.ChapterContent true "章节"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Failure 409 {object} dto.GenerationErrorResponse
// @Failure 422 {object} dto.GenerationErrorResponse
// @Router /api/v1/books/{id}/generation/chapters [post]
func (h *GenerationHandler) SubmitChapter(c *gin.Context) {
	var req entity.ChapterContent
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
		return h.generation.SubmitChapter(ctx, bookID, req)
	})
}

// Reset 重置生成会话
// @Summary 重置生成
// @Tags Generation
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Router /api/v1/books/{id}/generation/reset [post]
func (h *GenerationHandler) Reset(c *gin.Context) {
	h.transition(c, h.generation.Reset)
}

// AppendLog 追加进度日志
// @Summary 追加进度日志
// @Tags Generation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "书籍 ID"
// @Param body body dto.AppendLogRequest true "日志"
// @Success 200 {object} dto.Response[dto.GenerationStatusResponse]
// @Router /api/v1/books/{id}/generation/logs [post]
func (h *GenerationHandler) AppendLog(c *gin.Context) {
	var req dto.AppendLogRequest
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(ctx context.Context, bookID string) (entity.GenerationStatus, error) {
		return h.generation.Log(ctx, bookID, req.Message)
	})
}

// authorize 校验书籍存在且属于当前用户
func (h *GenerationHandler) authorize(c *gin.Context) (string, bool) {
	bookID := dto.BindBookID(c)
	if _, err := h.books.Get(c.Request.Context(), middleware.CurrentUserID(c), bookID); err != nil {
		respondError(c, "failed to authorize book", err)
		return "", false
	}
	return bookID, true
}

func (h *GenerationHandler) transition(c *gin.Context, fn func(ctx context.Context, bookID string) (entity.GenerationStatus, error)) {
	bookID, ok := h.authorize(c)
	if !ok {
		return
	}
	status, err := fn(c.Request.Context(), bookID)
	if err != nil {
		if !apperrors.IsGenerationRejection(err) {
			respondError(c, "generation transition failed", err)
			return
		}
		dto.GenerationError(c, err, status)
		return
	}
	dto.Success(c, dto.ToGenerationStatusResponse(status))
}
