package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// Operation 受权限控制的业务操作
type Operation string

const (
	OpGetSummary        Operation = "lunch.summary.get"
	OpExportSummary     Operation = "lunch.summary.export"
	OpSetDepartment     Operation = "lunch.department.set"
	OpGetDepartment     Operation = "lunch.department.get"
	OpDepartmentHistory Operation = "lunch.department.history"
	OpAuditHistory      Operation = "lunch.audit.list"
	OpClearDepartment   Operation = "lunch.department.clear"
	OpSetLock           Operation = "lunch.lock.set"
	OpGetLock           Operation = "lunch.lock.get"
	OpRealtime          Operation = "lunch.realtime.subscribe"
)

// Permissions 操作 → 允许的角色
// 所有角色检查都经过这一张表
var Permissions = map[Operation][]string{
	OpGetSummary:        {model.RoleManager, model.RoleAdmin, model.RoleKitchen},
	OpExportSummary:     {model.RoleManager, model.RoleAdmin, model.RoleKitchen},
	OpSetDepartment:     {model.RoleManager, model.RoleAdmin},
	OpGetDepartment:     {model.RoleManager, model.RoleAdmin, model.RoleKitchen},
	OpDepartmentHistory: {model.RoleManager, model.RoleAdmin},
	OpAuditHistory:      {model.RoleAdmin},
	OpClearDepartment:   {model.RoleAdmin},
	OpSetLock:           {model.RoleAdmin},
	OpGetLock:           {model.RoleManager, model.RoleAdmin, model.RoleKitchen},
	// 实时订阅与汇总读取权限一致
	OpRealtime: {model.RoleManager, model.RoleAdmin, model.RoleKitchen},
}

// Allowed 判断角色是否可执行操作，未登记的操作一律拒绝
func Allowed(op Operation, role string) bool {
	for _, r := range Permissions[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Require 权限中间件，需挂在 JWTAuth 之后
func Require(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, response.CodeUnauthorized, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		if !Allowed(op, userRole) {
			response.Forbidden(c, response.CodeForbidden, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
