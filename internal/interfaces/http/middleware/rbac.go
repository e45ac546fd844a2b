package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/domain/entity"
)

// Permission 权限类型
type Permission string

// 权限常量定义
const (
	PermBookRead     Permission = "book:read"
	PermBookWrite    Permission = "book:write"
	PermBookGenerate Permission = "book:generate"
	PermAdminAccess  Permission = "admin:access"
)

// rolePermissions 角色-权限映射表
var rolePermissions = map[entity.UserRole][]Permission{
	entity.UserRoleAdmin:  {PermBookRead, PermBookWrite, PermBookGenerate, PermAdminAccess},
	entity.UserRoleMember: {PermBookRead, PermBookWrite, PermBookGenerate},
}

// HasPermission 检查角色是否具有指定权限
func HasPermission(role entity.UserRole, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// RequirePermission 权限检查中间件
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			abortForbidden(c, "missing role in context")
			return
		}
		if !HasPermission(entity.UserRole(role), perm) {
			abortForbidden(c, "permission denied")
			return
		}
		c.Next()
	}
}

// RequireAdmin 仅管理员可访问
func RequireAdmin() gin.HandlerFunc {
	return RequirePermission(PermAdminAccess)
}

// abortForbidden 终止请求并返回 403
func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":     http.StatusForbidden,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
