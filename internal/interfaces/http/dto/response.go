// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/domain/entity"
	"unibook-api/internal/domain/repository"
	apperrors "unibook-api/pkg/errors"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// GenerationErrorResponse 生成流程被拒绝时的响应，附带未改变的状态
type GenerationErrorResponse struct {
	ErrorResponse
	Status *GenerationStatusResponse `json:"status,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Created 返回创建成功响应 (201)
func Created[T any](c *gin.Context, data T) {
	c.JSON(http.StatusCreated, Response[T]{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    httpCode,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 返回 401 错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable 返回 503 错误
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}

// AppError 按 AppError 的状态码与错误码返回；非 AppError 一律视为 500
func AppError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, newErrorResponse(c, appErr))
}

// GenerationError 返回生成流程错误，并带上当前状态
func GenerationError(c *gin.Context, err error, status entity.GenerationStatus) {
	appErr := apperrors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, GenerationErrorResponse{
		ErrorResponse: newErrorResponse(c, appErr),
		Status:        ToGenerationStatusResponse(status),
	})
}

func newErrorResponse(c *gin.Context, appErr *apperrors.AppError) ErrorResponse {
	message := appErr.Message
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		message = "internal server error"
	}
	resp := ErrorResponse{
		Code:    appErr.HTTPStatus,
		Message: message,
		Error:   &ErrorDetail{ErrorCode: string(appErr.Code)},
		TraceID: c.GetString("trace_id"),
	}
	if appErr.HTTPStatus < http.StatusInternalServerError {
		resp.Error.Details = appErr.Detail
	}
	return resp
}

// NewPageMeta 从分页结果创建元数据
func NewPageMeta[T any](result *repository.PagedResult[T]) *PageMeta {
	return &PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
}

// DeleteResponse 删除结果
type DeleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
