package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/api/handler"
	"github.com/HaiNguyen26/Meals-RMG/internal/api/middleware"
	"github.com/HaiNguyen26/Meals-RMG/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时写接口不限流；gatherer 为 nil 时不暴露 /metrics
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	limiter middleware.RateLimiter,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 / 指标 ──
	r.GET("/health", h.Health.Health)
	if cfg.Metrics.Enabled && gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	writeLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// WebSocket 握手自行校验令牌（支持 ?token=）
		v1.GET("/realtime", h.Realtime.Connect)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			lunch := authorized.Group("/lunch")
			{
				lunch.GET("/active-date", h.Lock.ActiveDate)

				lunch.GET("/summary", middleware.Require(middleware.OpGetSummary), h.Lunch.Summary)
				lunch.GET("/summary/export", middleware.Require(middleware.OpExportSummary), h.Export.ExportSummary)

				lunch.GET("/department", middleware.Require(middleware.OpGetDepartment), h.Lunch.GetDepartment)
				lunch.POST("/department", middleware.Require(middleware.OpSetDepartment), writeLimit, h.Lunch.SetDepartment)
				lunch.GET("/department/history", middleware.Require(middleware.OpDepartmentHistory), h.Lunch.DepartmentHistory)
				lunch.GET("/department/audit", middleware.Require(middleware.OpAuditHistory), h.Lunch.AuditHistory)
				lunch.POST("/department/clear", middleware.Require(middleware.OpClearDepartment), writeLimit, h.Lunch.Clear)

				lunch.GET("/lock", middleware.Require(middleware.OpGetLock), h.Lock.GetLock)
				lunch.POST("/lock", middleware.Require(middleware.OpSetLock), writeLimit, h.Lock.SetLock)
			}
		}
	}

	return r
}
