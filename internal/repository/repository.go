package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Lunch   LunchRepository
	History HistoryRepository
	Lock    LockRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:      db,
		Lunch:   NewLunchRepo(db),
		History: NewHistoryRepo(db),
		Lock:    NewLockRepo(db),
	}
}

// WithTx 返回绑定到给定事务的 Repository
func WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时回滚
// 未绑定数据库（单元测试中的 mock 聚合）时直接执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(tx))
	})
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isPostgres 当前连接是否为 PostgreSQL（决定是否使用行锁）
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
