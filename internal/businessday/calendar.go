// Package businessday 根据墙钟时间计算当前报餐日期与自动锁定窗口。
//
// 所有函数都是 (now, date) 的纯函数，不缓存任何"当前锁定"状态。
package businessday

import (
	"fmt"
	"time"

	"github.com/HaiNguyen26/Meals-RMG/config"
)

// Calendar 报餐日历规则
type Calendar struct {
	loc           *time.Location
	rolloverHour  int
	lockStartHour int
	lockEndHour   int
}

// New 创建 Calendar
// rolloverHour 起报餐日期切换为次日；[lockStartHour, lockEndHour) 为当日自动锁定窗口
func New(loc *time.Location, rolloverHour, lockStartHour, lockEndHour int) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{
		loc:           loc,
		rolloverHour:  rolloverHour,
		lockStartHour: lockStartHour,
		lockEndHour:   lockEndHour,
	}
}

// NewFromConfig 从报餐配置创建 Calendar
func NewFromConfig(cfg *config.LunchConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", cfg.Timezone, err)
	}
	return New(loc, cfg.RolloverHour, cfg.LockStartHour, cfg.LockEndHour), nil
}

// Location 业务时区
func (c *Calendar) Location() *time.Location { return c.loc }

// Today now 在业务时区下的日期
func (c *Calendar) Today(now time.Time) Date {
	return DateOf(now.In(c.loc))
}

// ActiveDate 当前报餐日期：切换小时（默认 12 点）之后为次日，否则为当日
func (c *Calendar) ActiveDate(now time.Time) Date {
	local := now.In(c.loc)
	d := DateOf(local)
	if local.Hour() >= c.rolloverHour {
		d = d.AddDays(1)
	}
	return d
}

// LockWindow 返回 date 的自动锁定区间 [start, end)
func (c *Calendar) LockWindow(d Date) (start, end time.Time) {
	return d.At(c.loc, c.lockStartHour), d.At(c.loc, c.lockEndHour)
}

// IsAutoLocked now 落在 date 当天的锁定窗口内。
// 只有"今天"会被时间规则锁定，过去和未来的日期永远不会。
func (c *Calendar) IsAutoLocked(now time.Time, d Date) bool {
	local := now.In(c.loc)
	if !DateOf(local).Equal(d) {
		return false
	}
	start, end := c.LockWindow(d)
	return !local.Before(start) && local.Before(end)
}

// PurgeDue 是否到了执行过期数据清理的时段
func (c *Calendar) PurgeDue(now time.Time) bool {
	return now.In(c.loc).Hour() >= c.rolloverHour
}
