package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Lunch     LunchService
	Lock      LockService
	Retention RetentionService
	Export    ExportService
}

// Publisher 按日期频道推送状态变更（*realtime.Hub 实现）
type Publisher interface {
	Publish(ctx context.Context, date businessday.Date, event realtime.Event)
}

// Actor 令牌中解析出的操作者
type Actor struct {
	UserID       string
	UserName     string
	Role         string
	DepartmentID string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Name 写入 updated_by / locked_by 的操作者名称
func (a Actor) Name() string {
	if a.UserName != "" {
		return a.UserName
	}
	return a.UserID
}

// NewService 创建 Service 聚合
// pub 为 nil 时不推送；m 为 nil 时不采集指标
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cal *businessday.Calendar,
	clk clock.Clock,
	pub Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	retention := NewRetentionService(repo, cal, clk, m, logger)
	lock := NewLockService(repo, cal, clk, retention, pub, m, logger)
	lunch := NewLunchService(&cfg.Lunch, repo, cal, clk, retention, lock, pub, m, logger)
	return &Service{
		Lunch:     lunch,
		Lock:      lock,
		Retention: retention,
		Export:    NewExportService(lunch, logger),
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, businessday.Date, realtime.Event) {}

// resolveDate 解析请求日期，空值取当前报餐日期
func resolveDate(cal *businessday.Calendar, clk clock.Clock, raw string) (businessday.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cal.ActiveDate(clk.Now()), nil
	}
	return businessday.ParseDate(raw)
}

func strPtr(s string) *string { return &s }
