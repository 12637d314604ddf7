package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	pkgerrors "github.com/HaiNguyen26/Meals-RMG/pkg/errors"
)

// LunchRepository 部门报餐记录数据访问接口
type LunchRepository interface {
	Get(ctx context.Context, departmentID string, date businessday.Date) (*model.DepartmentLunch, error)
	GetForUpdate(ctx context.Context, departmentID string, date businessday.Date) (*model.DepartmentLunch, error)
	Create(ctx context.Context, lunch *model.DepartmentLunch) error
	Update(ctx context.Context, lunch *model.DepartmentLunch) error
	ListByDate(ctx context.Context, date businessday.Date) ([]model.DepartmentLunch, error)
	DeleteBefore(ctx context.Context, date businessday.Date) (int64, error)
}

// lunchRepo LunchRepository 的 GORM 实现
type lunchRepo struct {
	db *gorm.DB
}

// NewLunchRepo 创建 LunchRepository 实例
func NewLunchRepo(db *gorm.DB) LunchRepository {
	return &lunchRepo{db: db}
}

func (r *lunchRepo) Get(ctx context.Context, departmentID string, date businessday.Date) (*model.DepartmentLunch, error) {
	var lunch model.DepartmentLunch
	err := r.db.WithContext(ctx).
		Where("department_id = ? AND date = ?", departmentID, date).
		First(&lunch).Error
	if err != nil {
		return nil, err
	}
	return &lunch, nil
}

// GetForUpdate 读取记录并加行锁（仅 PostgreSQL，需在事务内调用）
func (r *lunchRepo) GetForUpdate(ctx context.Context, departmentID string, date businessday.Date) (*model.DepartmentLunch, error) {
	q := r.db.WithContext(ctx)
	if isPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lunch model.DepartmentLunch
	err := q.Where("department_id = ? AND date = ?", departmentID, date).
		First(&lunch).Error
	if err != nil {
		return nil, err
	}
	return &lunch, nil
}

// Create 插入新记录；(department_id, date) 已被并发写入时返回 ErrOptimisticLock
func (r *lunchRepo) Create(ctx context.Context, lunch *model.DepartmentLunch) error {
	if lunch.Version == 0 {
		lunch.Version = 1
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(lunch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// Update 按版本号更新份数，版本不一致时返回 ErrOptimisticLock
func (r *lunchRepo) Update(ctx context.Context, lunch *model.DepartmentLunch) error {
	oldVersion := lunch.Version
	result := r.db.WithContext(ctx).
		Model(&model.DepartmentLunch{}).
		Where("id = ? AND version = ?", lunch.ID, oldVersion).
		Updates(map[string]interface{}{
			"regular_quantity": lunch.RegularQuantity,
			"veg_quantity":     lunch.VegQuantity,
			"total_quantity":   lunch.TotalQuantity,
			"updated_at":       lunch.UpdatedAt,
			"updated_by":       lunch.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	lunch.Version = oldVersion + 1
	return nil
}

// ListByDate 按部门 ID 升序列出某日全部报餐
func (r *lunchRepo) ListByDate(ctx context.Context, date businessday.Date) ([]model.DepartmentLunch, error) {
	var lunches []model.DepartmentLunch
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("department_id ASC").
		Find(&lunches).Error
	return lunches, err
}

func (r *lunchRepo) DeleteBefore(ctx context.Context, date businessday.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&model.DepartmentLunch{})
	return result.RowsAffected, result.Error
}
