package service

import (
	"context"
	"errors"
	"testing"

	"github.com/HaiNguyen26/Meals-RMG/internal/dto"
	"github.com/HaiNguyen26/Meals-RMG/internal/model"
)

// seedDay 为某日写入报餐、审计和锁定
func seedDay(t *testing.T, env *testEnv, date string) {
	t.Helper()
	ctx := context.Background()
	if _, err := env.svc.Lunch.Set(ctx, setReq(date, 1, 1), salesManager); err != nil {
		t.Fatalf("Set %s 失败: %v", date, err)
	}
	if _, err := env.svc.Lock.SetLock(ctx, &dto.SetLockRequest{Date: date, Locked: boolPtr(true)}, adminActor); err != nil {
		t.Fatalf("SetLock %s 失败: %v", date, err)
	}
}

func TestRetention_PurgesBeforeActiveDate(t *testing.T) {
	env := newTestEnv(at(3, 8, 0))
	seedDay(t, env, "2024-06-03")
	seedDay(t, env, "2024-06-04")

	// 13:00 报餐日期切换到 6/4，任意操作触发清理
	env.clock.Set(at(3, 13, 0))
	if _, err := env.svc.Lunch.Summary(context.Background(), "2024-06-04"); err != nil {
		t.Fatalf("Summary 失败: %v", err)
	}

	if _, ok := env.lunches.lunches[lunchKey("Sales", june3)]; ok {
		t.Error("6/3 报餐应被清理")
	}
	if env.histories.countFor("Sales", june3) != 0 {
		t.Error("6/3 审计应被清理")
	}
	if _, ok := env.locks.locks["2024-06-03"]; ok {
		t.Error("6/3 锁定应被清理")
	}

	if _, ok := env.lunches.lunches[lunchKey("Sales", june4)]; !ok {
		t.Error("6/4 报餐应保留")
	}
	if env.histories.countFor("Sales", june4) != 1 {
		t.Error("6/4 审计应保留")
	}
	if _, ok := env.locks.locks["2024-06-04"]; !ok {
		t.Error("6/4 锁定应保留")
	}
}

func TestRetention_SkipsBeforeRollover(t *testing.T) {
	env := newTestEnv(at(3, 8, 0))
	env.lunches.lunches[lunchKey("Sales", june2)] = &model.DepartmentLunch{DepartmentID: "Sales", Date: june2, Version: 1}

	env.clock.Set(at(3, 11, 59))
	env.svc.Retention.PurgeIfDue(context.Background())

	if _, ok := env.lunches.lunches[lunchKey("Sales", june2)]; !ok {
		t.Error("12:00 之前不应清理")
	}
}

func TestRetention_PurgesLateStaleWrites(t *testing.T) {
	env := newTestEnv(at(3, 13, 0))
	ctx := context.Background()

	env.svc.Retention.PurgeIfDue(ctx)

	// 首次清理之后当天午后仍可写入当天（早于报餐日期 06-04）的数据
	if _, err := env.svc.Lunch.Set(ctx, setReq("2024-06-03", 4, 1), salesManager); err != nil {
		t.Fatalf("午后写入当天不受时间窗口锁定: %v", err)
	}

	// 下一次操作开始时清理
	summary, err := env.svc.Lunch.Summary(ctx, "2024-06-03")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalQuantity != 0 || len(summary.Departments) != 0 {
		t.Errorf("过期数据应在下一次操作时清理，实际 %+v", summary)
	}
	if _, ok := env.lunches.lunches[lunchKey("Sales", june3)]; ok {
		t.Error("当天的报餐记录应已删除")
	}
	if env.histories.countFor("Sales", june3) != 0 {
		t.Error("当天的审计应已删除")
	}
}

func TestRetention_PurgesAfterAdminClearOnPastDate(t *testing.T) {
	env := newTestEnv(at(3, 14, 0))
	ctx := context.Background()

	env.svc.Retention.PurgeIfDue(ctx)
	if _, err := env.svc.Lunch.Clear(ctx, &dto.ClearDepartmentLunchRequest{Date: "2024-06-02", DepartmentID: "Sales"}, adminActor); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := env.lunches.lunches[lunchKey("Sales", june2)]; !ok {
		t.Fatal("清零应写入一条全 0 记录")
	}

	env.svc.Retention.PurgeIfDue(ctx)
	if _, ok := env.lunches.lunches[lunchKey("Sales", june2)]; ok {
		t.Error("历史日期的清零记录应在下一次清理时删除")
	}
	if env.histories.countFor("Sales", june2) != 0 {
		t.Error("历史日期的审计应在下一次清理时删除")
	}
}

func TestRetention_FailureDoesNotBreakCaller(t *testing.T) {
	env := newTestEnv(at(3, 13, 0))
	env.histories.err = errors.New("db down")
	env.lunches.lunches[lunchKey("Sales", june2)] = &model.DepartmentLunch{DepartmentID: "Sales", Date: june2, Version: 1}

	if _, err := env.svc.Lunch.Summary(context.Background(), "2024-06-04"); err != nil {
		t.Fatalf("清理失败不应影响读取: %v", err)
	}

	// 恢复后下一次操作重新清理
	env.histories.err = nil
	env.svc.Retention.PurgeIfDue(context.Background())
	if _, ok := env.lunches.lunches[lunchKey("Sales", june2)]; ok {
		t.Error("恢复后应完成清理")
	}
}

func TestRetention_PurgeExplicit(t *testing.T) {
	env := newTestEnv(at(3, 8, 0))
	seedDay(t, env, "2024-06-03")
	seedDay(t, env, "2024-06-04")

	res, err := env.svc.Retention.Purge(context.Background(), june4)
	if err != nil {
		t.Fatalf("Purge 失败: %v", err)
	}
	if res.Lunches != 1 || res.Histories != 1 || res.Locks != 1 || res.Before != "2024-06-04" {
		t.Errorf("清理结果错误: %+v", res)
	}
}
