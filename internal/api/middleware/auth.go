package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HaiNguyen26/Meals-RMG/pkg/jwt"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// 上下文键
const (
	CtxUserID       = "user_id"
	CtxUserName     = "user_name"
	CtxRole         = "role"
	CtxDepartmentID = "department_id"
)

// BearerToken 从 Authorization: Bearer <token> 中提取令牌
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTAuth JWT 认证中间件
// 校验身份服务签发的 Access Token，并将操作者身份注入上下文
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少认证头")
			c.Abort()
			return
		}

		token, ok := BearerToken(c)
		if !ok {
			response.Unauthorized(c, response.CodeUnauthorized, "认证头格式无效")
			c.Abort()
			return
		}

		id, err := jwtMgr.Authenticate(token)
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		SetIdentity(c, id)
		c.Next()
	}
}

// SetIdentity 将操作者身份写入上下文
func SetIdentity(c *gin.Context, id *jwt.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxUserName, id.UserName)
	c.Set(CtxRole, id.Role)
	c.Set(CtxDepartmentID, id.DepartmentID)
}
