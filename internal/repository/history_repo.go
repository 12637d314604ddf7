package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
)

// HistoryRepository 报餐审计数据访问接口（仅追加）
type HistoryRepository interface {
	Create(ctx context.Context, entry *model.DepartmentLunchHistory) error
	ListByDepartment(ctx context.Context, departmentID string, limit int) ([]model.DepartmentLunchHistory, error)
	ListAll(ctx context.Context, limit int) ([]model.DepartmentLunchHistory, error)
	DeleteBefore(ctx context.Context, date businessday.Date) (int64, error)
}

// historyRepo HistoryRepository 的 GORM 实现
type historyRepo struct {
	db *gorm.DB
}

// NewHistoryRepo 创建 HistoryRepository 实例
func NewHistoryRepo(db *gorm.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Create(ctx context.Context, entry *model.DepartmentLunchHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *historyRepo) ListByDepartment(ctx context.Context, departmentID string, limit int) ([]model.DepartmentLunchHistory, error) {
	var entries []model.DepartmentLunchHistory
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *historyRepo) ListAll(ctx context.Context, limit int) ([]model.DepartmentLunchHistory, error) {
	var entries []model.DepartmentLunchHistory
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *historyRepo) DeleteBefore(ctx context.Context, date businessday.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&model.DepartmentLunchHistory{})
	return result.RowsAffected, result.Error
}
