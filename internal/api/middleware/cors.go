package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginChecker 根据白名单判断 Origin 是否允许，"*" 表示全部允许
type OriginChecker struct {
	any     bool
	origins map[string]bool
}

// NewOriginChecker 创建 Origin 白名单
func NewOriginChecker(allowOrigins []string) *OriginChecker {
	oc := &OriginChecker{origins: make(map[string]bool, len(allowOrigins))}
	for _, o := range allowOrigins {
		if o == "*" {
			oc.any = true
			continue
		}
		oc.origins[strings.TrimRight(o, "/")] = true
	}
	return oc
}

// Allowed 判断 Origin 是否在白名单中
func (oc *OriginChecker) Allowed(origin string) bool {
	return oc.any || oc.origins[strings.TrimRight(origin, "/")]
}

// CORS 跨域中间件
func CORS(allowOrigins []string) gin.HandlerFunc {
	oc := NewOriginChecker(allowOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && oc.Allowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
