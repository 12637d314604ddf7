package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	"github.com/HaiNguyen26/Meals-RMG/internal/repository"
	pkgerrors "github.com/HaiNguyen26/Meals-RMG/pkg/errors"
)

// newSQLiteRepo 创建基于内存 SQLite 的 Repository
func newSQLiteRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return repository.NewRepository(db), db
}

var (
	day1 = businessday.NewDate(2024, time.June, 3)
	day2 = businessday.NewDate(2024, time.June, 4)
)

func strPtr(s string) *string { return &s }

func newLunch(dept string, date businessday.Date, regular, veg int) *model.DepartmentLunch {
	now := time.Date(2024, 6, 3, 1, 0, 0, 0, time.UTC)
	return &model.DepartmentLunch{
		DepartmentID:    dept,
		Date:            date,
		RegularQuantity: regular,
		VegQuantity:     veg,
		TotalQuantity:   regular + veg,
		CreatedAt:       now,
		UpdatedAt:       now,
		UpdatedBy:       strPtr("Nguyen Van A"),
	}
}

// ═══════════════════════════════════════════════════════════
// LunchRepository
// ═══════════════════════════════════════════════════════════

func TestLunchRepo_CreateAndGet(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	lunch := newLunch("Sales", day1, 10, 2)
	require.NoError(t, repo.Lunch.Create(ctx, lunch))
	assert.NotEmpty(t, lunch.ID)
	assert.Equal(t, 1, lunch.Version)

	got, err := repo.Lunch.Get(ctx, "Sales", day1)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(day1), "日期应往返一致: %s", got.Date)
	assert.Equal(t, 12, got.TotalQuantity)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, "Nguyen Van A", *got.UpdatedBy)

	_, err = repo.Lunch.Get(ctx, "Sales", day2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLunchRepo_CreateConflict(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Lunch.Create(ctx, newLunch("Sales", day1, 1, 0)))
	err := repo.Lunch.Create(ctx, newLunch("Sales", day1, 5, 0))
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)

	got, err := repo.Lunch.Get(ctx, "Sales", day1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegularQuantity, "冲突插入不应覆盖已有记录")
}

func TestLunchRepo_UpdateVersioned(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	lunch := newLunch("Sales", day1, 10, 2)
	require.NoError(t, repo.Lunch.Create(ctx, lunch))

	stale := *lunch

	lunch.RegularQuantity, lunch.TotalQuantity = 11, 13
	require.NoError(t, repo.Lunch.Update(ctx, lunch))
	assert.Equal(t, 2, lunch.Version)

	stale.RegularQuantity, stale.TotalQuantity = 20, 22
	err := repo.Lunch.Update(ctx, &stale)
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)

	got, err := repo.Lunch.GetForUpdate(ctx, "Sales", day1)
	require.NoError(t, err)
	assert.Equal(t, 11, got.RegularQuantity)
	assert.Equal(t, 2, got.Version)
}

func TestLunchRepo_ListByDateOrdered(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	for _, dept := range []string{"Sales", "Finance", "IT"} {
		require.NoError(t, repo.Lunch.Create(ctx, newLunch(dept, day1, 1, 1)))
	}
	require.NoError(t, repo.Lunch.Create(ctx, newLunch("HR", day2, 1, 1)))

	lunches, err := repo.Lunch.ListByDate(ctx, day1)
	require.NoError(t, err)
	require.Len(t, lunches, 3)
	assert.Equal(t, "Finance", lunches[0].DepartmentID)
	assert.Equal(t, "IT", lunches[1].DepartmentID)
	assert.Equal(t, "Sales", lunches[2].DepartmentID)
}

// ═══════════════════════════════════════════════════════════
// HistoryRepository
// ═══════════════════════════════════════════════════════════

func TestHistoryRepo_ListNewestFirst(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 1, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.History.Create(ctx, &model.DepartmentLunchHistory{
			DepartmentID:    "Sales",
			Date:            day1,
			RegularQuantity: i,
			TotalQuantity:   i,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.History.Create(ctx, &model.DepartmentLunchHistory{
		DepartmentID: "IT",
		Date:         day1,
		CreatedAt:    base.Add(10 * time.Minute),
	}))

	sales, err := repo.History.ListByDepartment(ctx, "Sales", 2)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, 2, sales[0].RegularQuantity)
	assert.Equal(t, 1, sales[1].RegularQuantity)

	all, err := repo.History.ListAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "IT", all[0].DepartmentID)
}

// ═══════════════════════════════════════════════════════════
// LockRepository
// ═══════════════════════════════════════════════════════════

func TestLockRepo_Upsert(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 1, 5, 0, 0, time.UTC)

	_, err := repo.Lock.Get(ctx, day1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Lock.Upsert(ctx, &model.LunchLock{
		Date: day1, Locked: true, LockedAt: &now, LockedBy: strPtr("admin"), UpdatedAt: now,
	}))
	got, err := repo.Lock.Get(ctx, day1)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	require.NotNil(t, got.LockedBy)
	assert.Equal(t, "admin", *got.LockedBy)

	require.NoError(t, repo.Lock.Upsert(ctx, &model.LunchLock{Date: day1, Locked: false, UpdatedAt: now}))
	got, err = repo.Lock.Get(ctx, day1)
	require.NoError(t, err)
	assert.False(t, got.Locked)
	assert.Nil(t, got.LockedAt)
	assert.Nil(t, got.LockedBy)
}

// ═══════════════════════════════════════════════════════════
// 清理与事务
// ═══════════════════════════════════════════════════════════

func TestDeleteBefore(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 1, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Lunch.Create(ctx, newLunch("Sales", day1, 1, 0)))
	require.NoError(t, repo.Lunch.Create(ctx, newLunch("Sales", day2, 2, 0)))
	require.NoError(t, repo.History.Create(ctx, &model.DepartmentLunchHistory{DepartmentID: "Sales", Date: day1, CreatedAt: now}))
	require.NoError(t, repo.History.Create(ctx, &model.DepartmentLunchHistory{DepartmentID: "Sales", Date: day2, CreatedAt: now}))
	require.NoError(t, repo.Lock.Upsert(ctx, &model.LunchLock{Date: day1, Locked: true, UpdatedAt: now}))
	require.NoError(t, repo.Lock.Upsert(ctx, &model.LunchLock{Date: day2, Locked: true, UpdatedAt: now}))

	n, err := repo.Lunch.DeleteBefore(ctx, day2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.History.DeleteBefore(ctx, day2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.Lock.DeleteBefore(ctx, day2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.Lunch.Get(ctx, "Sales", day2)
	assert.NoError(t, err, "当日及以后的记录应保留")
	_, err = repo.Lock.Get(ctx, day2)
	assert.NoError(t, err)
}

func TestTransaction_Rollback(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Lunch.Create(ctx, newLunch("Sales", day1, 3, 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Lunch.Get(ctx, "Sales", day1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "事务回滚后不应留下记录")

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Lunch.Create(ctx, newLunch("Sales", day1, 3, 0))
	})
	require.NoError(t, err)
	_, err = repo.Lunch.Get(ctx, "Sales", day1)
	assert.NoError(t, err)
}

func TestPing(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, (&repository.Repository{}).Ping(context.Background()))
}
