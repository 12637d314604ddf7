package service

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
	pkgerrors "github.com/HaiNguyen26/Meals-RMG/pkg/errors"
)

// ── Mock LunchRepository ──

type mockLunchRepo struct {
	lunches map[string]*model.DepartmentLunch

	// updateConflicts 接下来 N 次 Update 返回乐观锁冲突
	updateConflicts int
	updateCalls     int
}

func newMockLunchRepo() *mockLunchRepo {
	return &mockLunchRepo{lunches: make(map[string]*model.DepartmentLunch)}
}

func lunchKey(dept string, date businessday.Date) string {
	return dept + "|" + date.String()
}

func (m *mockLunchRepo) Get(_ context.Context, dept string, date businessday.Date) (*model.DepartmentLunch, error) {
	if l, ok := m.lunches[lunchKey(dept, date)]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLunchRepo) GetForUpdate(ctx context.Context, dept string, date businessday.Date) (*model.DepartmentLunch, error) {
	return m.Get(ctx, dept, date)
}

func (m *mockLunchRepo) Create(_ context.Context, lunch *model.DepartmentLunch) error {
	key := lunchKey(lunch.DepartmentID, lunch.Date)
	if _, ok := m.lunches[key]; ok {
		return pkgerrors.ErrOptimisticLock
	}
	if lunch.ID == "" {
		lunch.ID = "lunch-" + key
	}
	lunch.Version = 1
	cp := *lunch
	m.lunches[key] = &cp
	return nil
}

func (m *mockLunchRepo) Update(_ context.Context, lunch *model.DepartmentLunch) error {
	m.updateCalls++
	if m.updateConflicts > 0 {
		m.updateConflicts--
		return pkgerrors.ErrOptimisticLock
	}
	key := lunchKey(lunch.DepartmentID, lunch.Date)
	existing, ok := m.lunches[key]
	if !ok || existing.Version != lunch.Version {
		return pkgerrors.ErrOptimisticLock
	}
	lunch.Version++
	cp := *lunch
	m.lunches[key] = &cp
	return nil
}

func (m *mockLunchRepo) ListByDate(_ context.Context, date businessday.Date) ([]model.DepartmentLunch, error) {
	var result []model.DepartmentLunch
	for _, l := range m.lunches {
		if l.Date.Equal(date) {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DepartmentID < result[j].DepartmentID })
	return result, nil
}

func (m *mockLunchRepo) DeleteBefore(_ context.Context, date businessday.Date) (int64, error) {
	var n int64
	for k, l := range m.lunches {
		if l.Date.Before(date) {
			delete(m.lunches, k)
			n++
		}
	}
	return n, nil
}

// ── Mock HistoryRepository ──

type mockHistoryRepo struct {
	entries []model.DepartmentLunchHistory
	err     error
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{}
}

func (m *mockHistoryRepo) Create(_ context.Context, entry *model.DepartmentLunchHistory) error {
	if entry.ID == "" {
		entry.ID = "hist-" + entry.DepartmentID + "-" + entry.CreatedAt.Format("150405.000000000")
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistoryRepo) newestFirst(filter func(model.DepartmentLunchHistory) bool, limit int) []model.DepartmentLunchHistory {
	var result []model.DepartmentLunchHistory
	for i := len(m.entries) - 1; i >= 0; i-- {
		if filter(m.entries[i]) {
			result = append(result, m.entries[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (m *mockHistoryRepo) ListByDepartment(_ context.Context, dept string, limit int) ([]model.DepartmentLunchHistory, error) {
	return m.newestFirst(func(e model.DepartmentLunchHistory) bool { return e.DepartmentID == dept }, limit), nil
}

func (m *mockHistoryRepo) ListAll(_ context.Context, limit int) ([]model.DepartmentLunchHistory, error) {
	return m.newestFirst(func(model.DepartmentLunchHistory) bool { return true }, limit), nil
}

func (m *mockHistoryRepo) DeleteBefore(_ context.Context, date businessday.Date) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	kept := m.entries[:0]
	var n int64
	for _, e := range m.entries {
		if e.Date.Before(date) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return n, nil
}

func (m *mockHistoryRepo) countFor(dept string, date businessday.Date) int {
	n := 0
	for _, e := range m.entries {
		if e.DepartmentID == dept && e.Date.Equal(date) {
			n++
		}
	}
	return n
}

// ── Mock LockRepository ──

type mockLockRepo struct {
	locks map[string]*model.LunchLock
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{locks: make(map[string]*model.LunchLock)}
}

func (m *mockLockRepo) Get(_ context.Context, date businessday.Date) (*model.LunchLock, error) {
	if l, ok := m.locks[date.String()]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLockRepo) Upsert(_ context.Context, lock *model.LunchLock) error {
	cp := *lock
	m.locks[lock.Date.String()] = &cp
	return nil
}

func (m *mockLockRepo) DeleteBefore(_ context.Context, date businessday.Date) (int64, error) {
	var n int64
	for k, l := range m.locks {
		if l.Date.Before(date) {
			delete(m.locks, k)
			n++
		}
	}
	return n, nil
}
