package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/HaiNguyen26/Meals-RMG/internal/api/middleware"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxRole)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// actorFrom 组装当前请求的操作者
// user_name / department_id 允许为空（管理员、后厨可能不隶属部门）
func actorFrom(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:       userID,
		UserName:     c.GetString(middleware.CtxUserName),
		Role:         role,
		DepartmentID: c.GetString(middleware.CtxDepartmentID),
	}, true
}
