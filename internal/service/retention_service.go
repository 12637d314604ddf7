package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
)

// PurgeResult 一次清理删除的行数
type PurgeResult struct {
	Before    string `json:"before"`
	Lunches   int64  `json:"lunches"`
	Histories int64  `json:"histories"`
	Locks     int64  `json:"locks"`
}

// RetentionService 过期数据清理
//
// PurgeIfDue 在每个报餐 / 锁定公开操作开始时调用：
// 报餐日期切换后（12:00 起）每次都删除早于当前报餐日期的记录、审计和锁定。
// 清理是尽力而为的，失败只记录日志和指标，不影响调用方。
type RetentionService interface {
	PurgeIfDue(ctx context.Context)
	Purge(ctx context.Context, before businessday.Date) (*PurgeResult, error)
}

type retentionService struct {
	repo    *repository.Repository
	cal     *businessday.Calendar
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRetentionService 创建 RetentionService 实例
func NewRetentionService(
	repo *repository.Repository,
	cal *businessday.Calendar,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) RetentionService {
	return &retentionService{repo: repo, cal: cal, clock: clk, metrics: m, logger: logger}
}

func (s *retentionService) PurgeIfDue(ctx context.Context) {
	now := s.clock.Now()
	if !s.cal.PurgeDue(now) {
		return
	}
	cutoff := s.cal.ActiveDate(now)

	// 切换后仍可能写入早于报餐日期的数据，不按截止日期缓存
	if _, err := s.Purge(ctx, cutoff); err != nil {
		s.metrics.IncrementPurgeFailures()
		s.logger.Warn("过期报餐数据清理失败", zap.String("before", cutoff.String()), zap.Error(err))
	}
}

// Purge 删除 date < before 的全部报餐、审计与锁定
func (s *retentionService) Purge(ctx context.Context, before businessday.Date) (*PurgeResult, error) {
	result := &PurgeResult{Before: before.String()}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if result.Histories, err = tx.History.DeleteBefore(ctx, before); err != nil {
			return err
		}
		if result.Lunches, err = tx.Lunch.DeleteBefore(ctx, before); err != nil {
			return err
		}
		result.Locks, err = tx.Lock.DeleteBefore(ctx, before)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddPurgedRows("department_lunch_histories", result.Histories)
	s.metrics.AddPurgedRows("department_lunches", result.Lunches)
	s.metrics.AddPurgedRows("lunch_locks", result.Locks)

	if result.Histories+result.Lunches+result.Locks > 0 {
		s.logger.Info("已清理过期报餐数据",
			zap.String("before", result.Before),
			zap.Int64("lunches", result.Lunches),
			zap.Int64("histories", result.Histories),
			zap.Int64("locks", result.Locks),
		)
	}
	return result, nil
}
