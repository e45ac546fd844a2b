// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/interfaces/http/dto"
	apperrors "unibook-api/pkg/errors"
	"unibook-api/pkg/logger"
)

// respondError 输出错误响应，服务端错误记录日志
func respondError(c *gin.Context, msg string, err error) {
	if apperrors.AsAppError(err).HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.AppError(c, err)
}

// bindJSON 绑定请求体，失败时直接返回 400
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
