package handler

import (
	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Lunch    *LunchHandler
	Lock     *LockHandler
	Export   *ExportHandler
	Realtime *RealtimeHandler
	Health   *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(
	cfg *config.Config,
	svc *service.Service,
	hub *realtime.Hub,
	auth TokenAuthenticator,
	checks map[string]Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Lunch:    NewLunchHandler(svc.Lunch),
		Lock:     NewLockHandler(svc.Lock),
		Export:   NewExportHandler(svc.Export),
		Realtime: NewRealtimeHandler(hub, auth, cfg.Realtime, cfg.Server.CORS.AllowOrigins, logger),
		Health:   NewHealthHandler(checks),
	}
}
