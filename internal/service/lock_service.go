package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/dto"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
)

// ── 锁定模块业务错误 ──

// ErrLunchLocked 报餐已锁定，*LockedError 满足 errors.Is(err, ErrLunchLocked)
var ErrLunchLocked = errors.New("该日期报餐已锁定")

// 锁定原因
const (
	LockReasonManual    = "manual"
	LockReasonAutomatic = "automatic"
)

// SystemActor 自动锁定的锁定人
const SystemActor = "system"

// LockedError 写入被锁定拒绝，携带锁定原因
type LockedError struct {
	Date   businessday.Date
	Reason string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s 报餐已锁定 (%s)", e.Date, e.Reason)
}

func (e *LockedError) Is(target error) bool { return target == ErrLunchLocked }

// LockStatus 有效锁定状态
type LockStatus struct {
	Locked bool
	Reason string
}

// LockService 报餐锁定业务接口
//
// 有效锁定 = 手动锁定 OR 自动时间窗口；自动窗口只对"今天"生效且不落库，
// 每次读取时按 (now, date) 计算。
type LockService interface {
	IsLocked(ctx context.Context, date businessday.Date) (bool, error)
	Status(ctx context.Context, date businessday.Date) (*LockStatus, error)
	SetLock(ctx context.Context, req *dto.SetLockRequest, actor Actor) (*dto.LunchLockResponse, error)
	GetLock(ctx context.Context, rawDate string) (*dto.LunchLockResponse, error)
	ActiveDate(ctx context.Context) (*dto.ActiveDateResponse, error)
}

type lockService struct {
	repo      *repository.Repository
	cal       *businessday.Calendar
	clock     clock.Clock
	retention RetentionService
	pub       Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewLockService 创建 LockService 实例
func NewLockService(
	repo *repository.Repository,
	cal *businessday.Calendar,
	clk clock.Clock,
	retention RetentionService,
	pub Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) LockService {
	return &lockService{
		repo:      repo,
		cal:       cal,
		clock:     clk,
		retention: retention,
		pub:       pub,
		metrics:   m,
		logger:    logger,
	}
}

func (s *lockService) IsLocked(ctx context.Context, date businessday.Date) (bool, error) {
	st, err := s.Status(ctx, date)
	if err != nil {
		return false, err
	}
	return st.Locked, nil
}

func (s *lockService) Status(ctx context.Context, date businessday.Date) (*LockStatus, error) {
	s.retention.PurgeIfDue(ctx)

	stored, err := s.stored(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.status(stored, date), nil
}

// ────────────────────── SetLock ──────────────────────

func (s *lockService) SetLock(ctx context.Context, req *dto.SetLockRequest, actor Actor) (*dto.LunchLockResponse, error) {
	s.retention.PurgeIfDue(ctx)

	date, err := resolveDate(s.cal, s.clock, req.Date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	lock := &model.LunchLock{
		Date:      date,
		Locked:    *req.Locked,
		UpdatedAt: now,
	}
	if lock.Locked {
		lock.LockedAt = &now
		lock.LockedBy = strPtr(actor.Name())
	}

	if err := s.repo.Lock.Upsert(ctx, lock); err != nil {
		s.logger.Error("保存报餐锁定失败", zap.String("date", date.String()), zap.Error(err))
		return nil, err
	}
	s.metrics.IncrementLockChanges(lock.Locked)

	s.logger.Info("报餐锁定状态已更新",
		zap.String("date", date.String()),
		zap.Bool("locked", lock.Locked),
		zap.String("actor", actor.Name()),
	)

	resp := s.merge(lock, date)
	s.pub.Publish(ctx, date, realtime.LockEvent(resp))
	return resp, nil
}

// ────────────────────── GetLock ──────────────────────

func (s *lockService) GetLock(ctx context.Context, rawDate string) (*dto.LunchLockResponse, error) {
	s.retention.PurgeIfDue(ctx)

	date, err := resolveDate(s.cal, s.clock, rawDate)
	if err != nil {
		return nil, err
	}
	stored, err := s.stored(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.merge(stored, date), nil
}

// ActiveDate 当前报餐日期及其锁定窗口
func (s *lockService) ActiveDate(ctx context.Context) (*dto.ActiveDateResponse, error) {
	s.retention.PurgeIfDue(ctx)

	now := s.clock.Now()
	active := s.cal.ActiveDate(now)
	stored, err := s.stored(ctx, active)
	if err != nil {
		return nil, err
	}
	start, end := s.cal.LockWindow(active)
	return &dto.ActiveDateResponse{
		ActiveDate:      active.String(),
		Today:           s.cal.Today(now).String(),
		Locked:          s.status(stored, active).Locked,
		LockWindowStart: start,
		LockWindowEnd:   end,
		Timezone:        s.cal.Location().String(),
	}, nil
}

// ── 内部方法 ──

// stored 读取手动锁定记录，不存在时返回 nil
func (s *lockService) stored(ctx context.Context, date businessday.Date) (*model.LunchLock, error) {
	lock, err := s.repo.Lock.Get(ctx, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询报餐锁定失败", zap.String("date", date.String()), zap.Error(err))
		return nil, err
	}
	return lock, nil
}

func (s *lockService) status(stored *model.LunchLock, date businessday.Date) *LockStatus {
	if stored != nil && stored.Locked {
		return &LockStatus{Locked: true, Reason: LockReasonManual}
	}
	if s.cal.IsAutoLocked(s.clock.Now(), date) {
		return &LockStatus{Locked: true, Reason: LockReasonAutomatic}
	}
	return &LockStatus{}
}

// merge 合并手动锁定与自动窗口
// 仅自动窗口生效时 locked_by = "system"，locked_at = 窗口开始时间
func (s *lockService) merge(stored *model.LunchLock, date businessday.Date) *dto.LunchLockResponse {
	resp := &dto.LunchLockResponse{Date: date.String(), ManualLocked: stored != nil && stored.Locked}
	st := s.status(stored, date)
	resp.Locked = st.Locked
	resp.Reason = st.Reason

	switch st.Reason {
	case LockReasonManual:
		resp.LockedAt = stored.LockedAt
		resp.LockedBy = stored.LockedBy
	case LockReasonAutomatic:
		start, _ := s.cal.LockWindow(date)
		resp.LockedAt = &start
		resp.LockedBy = strPtr(SystemActor)
	}
	return resp
}
