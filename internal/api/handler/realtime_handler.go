package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/api/middleware"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/pkg/jwt"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// TokenAuthenticator 校验 Access Token（*jwt.Manager 实现）
type TokenAuthenticator interface {
	Authenticate(tokenString string) (*jwt.Identity, error)
}

// RealtimeHandler WebSocket 推送入口
// 握手在 JWT 中间件之外完成：浏览器 WebSocket 无法设置请求头，令牌可放在 ?token= 中
type RealtimeHandler struct {
	hub      *realtime.Hub
	auth     TokenAuthenticator
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewRealtimeHandler 创建 RealtimeHandler
// allowOrigins 复用 CORS 白名单；无 Origin 的非浏览器客户端直接放行
func NewRealtimeHandler(hub *realtime.Hub, auth TokenAuthenticator, cfg config.RealtimeConfig, allowOrigins []string, logger *zap.Logger) *RealtimeHandler {
	oc := middleware.NewOriginChecker(allowOrigins)
	return &RealtimeHandler{
		hub:  hub,
		auth: auth,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || oc.Allowed(origin)
			},
		},
		logger: logger,
	}
}

// Connect 升级为 WebSocket 连接
// GET /api/v1/realtime?token=xxx
func (h *RealtimeHandler) Connect(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "缺少认证令牌")
		return
	}

	id, err := h.auth.Authenticate(token)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
		return
	}
	if !middleware.Allowed(middleware.OpRealtime, id.Role) {
		response.Forbidden(c, response.CodeForbidden, "无权限访问")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已写回 HTTP 错误
		h.logger.Warn("WebSocket 握手失败", zap.String("user_id", id.UserID), zap.Error(err))
		return
	}

	h.logger.Debug("实时连接建立", zap.String("user_id", id.UserID), zap.String("role", id.Role))
	realtime.NewClient(h.hub, conn, h.cfg.SendBuffer, id.UserID, id.Role).Serve(h.cfg.PingInterval)
}
