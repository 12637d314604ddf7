package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
)

// LockRepository 报餐锁定数据访问接口
type LockRepository interface {
	Get(ctx context.Context, date businessday.Date) (*model.LunchLock, error)
	Upsert(ctx context.Context, lock *model.LunchLock) error
	DeleteBefore(ctx context.Context, date businessday.Date) (int64, error)
}

// lockRepo LockRepository 的 GORM 实现
type lockRepo struct {
	db *gorm.DB
}

// NewLockRepo 创建 LockRepository 实例
func NewLockRepo(db *gorm.DB) LockRepository {
	return &lockRepo{db: db}
}

func (r *lockRepo) Get(ctx context.Context, date businessday.Date) (*model.LunchLock, error) {
	var lock model.LunchLock
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// Upsert 按日期插入或覆盖锁定状态
func (r *lockRepo) Upsert(ctx context.Context, lock *model.LunchLock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"locked", "locked_at", "locked_by", "updated_at"}),
		}).
		Create(lock).Error
}

func (r *lockRepo) DeleteBefore(ctx context.Context, date businessday.Date) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&model.LunchLock{})
	return result.RowsAffected, result.Error
}
