package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/domain/repository"
)

// BindPage 从查询参数绑定分页，非法值回落到默认值
func BindPage(c *gin.Context) repository.Pagination {
	return BindPageWithDefault(c, 20)
}

// BindPageWithDefault 同 BindPage，可指定默认页大小
func BindPageWithDefault(c *gin.Context, defaultSize int) repository.Pagination {
	page := parseIntWithDefault(c.Query("page"), 1)
	pageSize := parseIntWithDefault(c.Query("page_size"), defaultSize)
	return repository.NewPagination(page, pageSize)
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindBookID 从 URI 绑定书籍 ID
func BindBookID(c *gin.Context) string {
	return c.Param("id")
}
