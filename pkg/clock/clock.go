// Package clock 抽象当前时间，便于对按时刻生效的业务规则做确定性测试。
package clock

import (
	"sync"
	"time"
)

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// Real 使用系统时间
type Real struct{}

// Now 返回当前系统时间
func (Real) Now() time.Time {
	return time.Now()
}

// Manual 可手动拨动的时钟，仅用于测试
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual 以给定时刻创建 Manual 时钟
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now 返回当前手动时刻
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set 将时钟拨到指定时刻
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance 将时钟向前拨动 d，返回拨动后的时刻
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}
