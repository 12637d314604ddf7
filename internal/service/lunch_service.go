package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/config"
	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/dto"
	"github.com/HaiNguyen26/Meals-RMG/internal/metrics"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/internal/realtime"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	"github.com/HaiNguyen26/Meals-RMG/pkg/clock"
	pkgerrors "github.com/HaiNguyen26/Meals-RMG/pkg/errors"
)

// ── 报餐模块业务错误 ──

var (
	ErrInvalidDate       = businessday.ErrInvalidDate
	ErrMissingDepartment = errors.New("缺少部门标识")
	ErrNegativeQuantity  = errors.New("份数不能为负数")
	ErrQuantityTooLarge  = errors.New("份数超出上限")
	ErrForeignDepartment = errors.New("只能操作本部门的报餐")
)

const (
	// maxWriteAttempts 乐观锁冲突时的最大尝试次数
	maxWriteAttempts = 3
	// MaxHistoryLimit 历史查询单次返回上限
	MaxHistoryLimit = 500
	// MaxQuantity 单项份数与合计份数上限，与数据库 INT 列一致
	MaxQuantity = math.MaxInt32
)

// LunchService 部门报餐业务接口
//
// 写入流程：过期清理 → 解析日期 → 锁定检查 → 事务内行锁读取 + 版本号更新 + 条件审计 → 推送。
// 份数未变化时不追加审计；清零操作始终追加审计且不受锁定限制。
type LunchService interface {
	// Set 设置部门报餐份数
	Set(ctx context.Context, req *dto.SetDepartmentLunchRequest, actor Actor) (*dto.DepartmentLunchResponse, error)
	// Get 查询部门报餐，未报餐时返回全 0 记录
	Get(ctx context.Context, query *dto.DepartmentLunchQuery, actor Actor) (*dto.DepartmentLunchResponse, error)
	// Clear 清零部门报餐（管理员）
	Clear(ctx context.Context, req *dto.ClearDepartmentLunchRequest, actor Actor) (*dto.DepartmentLunchResponse, error)
	// ListDepartmentHistory 本部门审计历史，最新在前
	ListDepartmentHistory(ctx context.Context, query *dto.HistoryQuery, actor Actor) ([]dto.LunchHistoryResponse, error)
	// ListAuditHistory 全部审计历史，最新在前
	ListAuditHistory(ctx context.Context, limit int) ([]dto.LunchHistoryResponse, error)
	// Summary 某日各部门报餐汇总
	Summary(ctx context.Context, rawDate string) (*dto.LunchSummaryResponse, error)
}

type lunchService struct {
	cfg       *config.LunchConfig
	repo      *repository.Repository
	cal       *businessday.Calendar
	clock     clock.Clock
	retention RetentionService
	lock      LockService
	pub       Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewLunchService 创建 LunchService 实例
func NewLunchService(
	cfg *config.LunchConfig,
	repo *repository.Repository,
	cal *businessday.Calendar,
	clk clock.Clock,
	retention RetentionService,
	lock LockService,
	pub Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) LunchService {
	return &lunchService{
		cfg:       cfg,
		repo:      repo,
		cal:       cal,
		clock:     clk,
		retention: retention,
		lock:      lock,
		pub:       pub,
		metrics:   m,
		logger:    logger,
	}
}

// ────────────────────── Set ──────────────────────

func (s *lunchService) Set(ctx context.Context, req *dto.SetDepartmentLunchRequest, actor Actor) (*dto.DepartmentLunchResponse, error) {
	s.retention.PurgeIfDue(ctx)
	started := s.clock.Now()

	date, err := resolveDate(s.cal, s.clock, req.Date)
	if err != nil {
		return nil, err
	}
	dept, err := resolveDepartment(req.DepartmentID, actor)
	if err != nil {
		return nil, err
	}
	regular, veg := quantitiesFromRequest(req)
	if err := validateQuantities(regular, veg); err != nil {
		return nil, err
	}

	st, err := s.lock.Status(ctx, date)
	if err != nil {
		return nil, err
	}
	if st.Locked {
		s.metrics.ObserveRegistration(metrics.ResultLocked, s.clock.Now().Sub(started))
		return nil, &LockedError{Date: date, Reason: st.Reason}
	}

	lunch, result, err := s.write(ctx, date, dept, regular, veg, actor.Name(), false)
	s.metrics.ObserveRegistration(result, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}

	resp := toLunchResponse(lunch)
	s.pub.Publish(ctx, date, realtime.DepartmentEvent(resp))
	return resp, nil
}

// ────────────────────── Get ──────────────────────

func (s *lunchService) Get(ctx context.Context, query *dto.DepartmentLunchQuery, actor Actor) (*dto.DepartmentLunchResponse, error) {
	s.retention.PurgeIfDue(ctx)

	date, err := resolveDate(s.cal, s.clock, query.Date)
	if err != nil {
		return nil, err
	}
	dept, err := resolveDepartment(query.DepartmentID, actor)
	if err != nil {
		return nil, err
	}

	lunch, err := s.repo.Lunch.Get(ctx, dept, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.DepartmentLunchResponse{DepartmentID: dept, Date: date.String()}, nil
		}
		s.logger.Error("查询部门报餐失败", zap.String("department_id", dept), zap.Error(err))
		return nil, err
	}
	return toLunchResponse(lunch), nil
}

// ────────────────────── Clear ──────────────────────

func (s *lunchService) Clear(ctx context.Context, req *dto.ClearDepartmentLunchRequest, actor Actor) (*dto.DepartmentLunchResponse, error) {
	s.retention.PurgeIfDue(ctx)
	started := s.clock.Now()

	date, err := resolveDate(s.cal, s.clock, req.Date)
	if err != nil {
		return nil, err
	}
	dept := strings.TrimSpace(req.DepartmentID)
	if dept == "" {
		return nil, ErrMissingDepartment
	}

	lunch, result, err := s.write(ctx, date, dept, 0, 0, actor.Name(), true)
	s.metrics.ObserveRegistration(result, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}

	s.logger.Info("部门报餐已清零",
		zap.String("department_id", dept),
		zap.String("date", date.String()),
		zap.String("actor", actor.Name()),
	)

	resp := toLunchResponse(lunch)
	s.pub.Publish(ctx, date, realtime.DepartmentEvent(resp))
	return resp, nil
}

// ────────────────────── History ──────────────────────

func (s *lunchService) ListDepartmentHistory(ctx context.Context, query *dto.HistoryQuery, actor Actor) ([]dto.LunchHistoryResponse, error) {
	s.retention.PurgeIfDue(ctx)

	dept, err := resolveDepartment(query.DepartmentID, actor)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.History.ListByDepartment(ctx, dept, clampLimit(query.Limit, s.cfg.HistoryLimit))
	if err != nil {
		s.logger.Error("查询部门报餐历史失败", zap.String("department_id", dept), zap.Error(err))
		return nil, err
	}
	return toHistoryResponses(entries), nil
}

func (s *lunchService) ListAuditHistory(ctx context.Context, limit int) ([]dto.LunchHistoryResponse, error) {
	s.retention.PurgeIfDue(ctx)

	entries, err := s.repo.History.ListAll(ctx, clampLimit(limit, s.cfg.AuditLimit))
	if err != nil {
		s.logger.Error("查询报餐审计历史失败", zap.Error(err))
		return nil, err
	}
	return toHistoryResponses(entries), nil
}

// ────────────────────── Summary ──────────────────────

func (s *lunchService) Summary(ctx context.Context, rawDate string) (*dto.LunchSummaryResponse, error) {
	s.retention.PurgeIfDue(ctx)

	date, err := resolveDate(s.cal, s.clock, rawDate)
	if err != nil {
		return nil, err
	}
	lunches, err := s.repo.Lunch.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询报餐汇总失败", zap.String("date", date.String()), zap.Error(err))
		return nil, err
	}

	resp := &dto.LunchSummaryResponse{
		Date:        date.String(),
		Departments: make([]dto.DepartmentLunchResponse, 0, len(lunches)),
	}
	for i := range lunches {
		item := toLunchResponse(&lunches[i])
		resp.Departments = append(resp.Departments, *item)
		resp.TotalQuantity += item.TotalQuantity
		resp.TotalRegular += item.RegularQuantity
		resp.TotalVeg += item.VegQuantity
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// write — 事务内读改写，乐观锁冲突时整体重试
// ═══════════════════════════════════════════════════════════
//
// 首次写入或份数变化时追加审计；forceAudit 用于清零，始终追加。
// 返回保存后的记录与写入结果标签。

func (s *lunchService) write(
	ctx context.Context,
	date businessday.Date,
	dept string,
	regular, veg int,
	actorName string,
	forceAudit bool,
) (*model.DepartmentLunch, string, error) {
	total := regular + veg

	var (
		saved  *model.DepartmentLunch
		result string
		err    error
	)
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			current, err := tx.Lunch.GetForUpdate(ctx, dept, date)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := s.clock.Now().UTC()
			changed := current == nil || !current.SameQuantities(regular, veg, total)

			if current == nil {
				current = &model.DepartmentLunch{
					DepartmentID: dept,
					Date:         date,
					CreatedAt:    now,
				}
				result = metrics.ResultCreated
			} else if changed {
				result = metrics.ResultUpdated
			} else {
				result = metrics.ResultUnchanged
			}
			current.RegularQuantity = regular
			current.VegQuantity = veg
			current.TotalQuantity = total
			current.UpdatedAt = now
			current.UpdatedBy = strPtr(actorName)

			if result == metrics.ResultCreated {
				err = tx.Lunch.Create(ctx, current)
			} else {
				err = tx.Lunch.Update(ctx, current)
			}
			if err != nil {
				return err
			}

			if changed || forceAudit {
				entry := &model.DepartmentLunchHistory{
					DepartmentID:    dept,
					Date:            date,
					RegularQuantity: regular,
					VegQuantity:     veg,
					TotalQuantity:   total,
					CreatedAt:       now,
					UpdatedBy:       strPtr(actorName),
				}
				if err := tx.History.Create(ctx, entry); err != nil {
					return err
				}
				s.metrics.IncrementAuditEntries()
			}

			saved = current
			return nil
		})
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			break
		}
		s.logger.Debug("部门报餐写入冲突，重试",
			zap.String("department_id", dept),
			zap.String("date", date.String()),
			zap.Int("attempt", attempt),
		)
	}

	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, metrics.ResultConflict, err
		}
		s.logger.Error("保存部门报餐失败",
			zap.String("department_id", dept),
			zap.String("date", date.String()),
			zap.Error(err),
		)
		return nil, metrics.ResultError, err
	}
	return saved, result, nil
}

// ── 辅助函数 ──

// resolveDepartment 确定目标部门：管理员可指定任意部门，其他角色只能操作本部门
func resolveDepartment(requested string, actor Actor) (string, error) {
	requested = strings.TrimSpace(requested)
	own := strings.TrimSpace(actor.DepartmentID)

	if requested == "" {
		if own == "" {
			return "", ErrMissingDepartment
		}
		return own, nil
	}
	if requested != own && !actor.IsAdmin() {
		return "", ErrForeignDepartment
	}
	return requested, nil
}

// quantitiesFromRequest 解析份数
// 兼容旧客户端：未提供 regular_quantity 但提供 total_quantity 时 regular = total
func quantitiesFromRequest(req *dto.SetDepartmentLunchRequest) (regular, veg int) {
	if req.VegQuantity != nil {
		veg = *req.VegQuantity
	}
	switch {
	case req.RegularQuantity != nil:
		regular = *req.RegularQuantity
	case req.TotalQuantity != nil:
		regular = *req.TotalQuantity
	}
	return regular, veg
}

// validateQuantities 份数非负，且单项与合计均不超过 MaxQuantity
func validateQuantities(regular, veg int) error {
	if regular < 0 || veg < 0 {
		return ErrNegativeQuantity
	}
	if regular > MaxQuantity || veg > MaxQuantity || regular > MaxQuantity-veg {
		return ErrQuantityTooLarge
	}
	return nil
}

// normalizeQuantities 读时兼容：旧数据只有总数时视为全部普通餐
func normalizeQuantities(regular, veg, total int) (int, int, int) {
	if total > 0 && regular == 0 && veg == 0 {
		return total, 0, total
	}
	return regular, veg, total
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit <= 0 {
		limit = 30
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return limit
}

func toLunchResponse(l *model.DepartmentLunch) *dto.DepartmentLunchResponse {
	regular, veg, total := normalizeQuantities(l.RegularQuantity, l.VegQuantity, l.TotalQuantity)
	updatedAt := l.UpdatedAt
	resp := &dto.DepartmentLunchResponse{
		DepartmentID:    l.DepartmentID,
		Date:            l.Date.String(),
		RegularQuantity: regular,
		VegQuantity:     veg,
		TotalQuantity:   total,
		UpdatedBy:       l.UpdatedBy,
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func toHistoryResponses(entries []model.DepartmentLunchHistory) []dto.LunchHistoryResponse {
	out := make([]dto.LunchHistoryResponse, 0, len(entries))
	for _, e := range entries {
		regular, veg, total := normalizeQuantities(e.RegularQuantity, e.VegQuantity, e.TotalQuantity)
		out = append(out, dto.LunchHistoryResponse{
			ID:              e.ID,
			DepartmentID:    e.DepartmentID,
			Date:            e.Date.String(),
			RegularQuantity: regular,
			VegQuantity:     veg,
			TotalQuantity:   total,
			CreatedAt:       e.CreatedAt,
			UpdatedBy:       e.UpdatedBy,
		})
	}
	return out
}
