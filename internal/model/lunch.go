package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HaiNguyen26/Meals-RMG/internal/businessday"
)

// DepartmentLunch 部门报餐记录 — 对应 department_lunches
// 每个 (department_id, date) 唯一，Version 用于乐观锁
type DepartmentLunch struct {
	ID              string           `gorm:"type:uuid;primaryKey"                                             json:"id"`
	DepartmentID    string           `gorm:"type:varchar(100);not null;uniqueIndex:uq_department_lunches_department_date,priority:1" json:"department_id"`
	Date            businessday.Date `gorm:"type:date;not null;index;uniqueIndex:uq_department_lunches_department_date,priority:2"   json:"date"`
	RegularQuantity int              `gorm:"not null;default:0"                                               json:"regular_quantity"`
	VegQuantity     int              `gorm:"not null;default:0"                                               json:"veg_quantity"`
	TotalQuantity   int              `gorm:"not null;default:0"                                               json:"total_quantity"`
	Version         int              `gorm:"not null;default:1"                                               json:"version"`
	CreatedAt       time.Time        `gorm:"not null"                                                         json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null"                                                         json:"updated_at"`
	UpdatedBy       *string          `gorm:"type:varchar(100)"                                                json:"updated_by"`
}

// TableName 指定表名
func (DepartmentLunch) TableName() string { return "department_lunches" }

// BeforeCreate 生成主键
func (l *DepartmentLunch) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// SameQuantities 判断份数是否与给定值完全一致
func (l *DepartmentLunch) SameQuantities(regular, veg, total int) bool {
	return l.RegularQuantity == regular && l.VegQuantity == veg && l.TotalQuantity == total
}

// DepartmentLunchHistory 报餐变更审计 — 对应 department_lunch_histories
// 仅追加，记录每次份数变化后的快照
type DepartmentLunchHistory struct {
	ID              string           `gorm:"type:uuid;primaryKey"                                                json:"id"`
	DepartmentID    string           `gorm:"type:varchar(100);not null;index:idx_lunch_histories_department_created,priority:1" json:"department_id"`
	Date            businessday.Date `gorm:"type:date;not null;index:idx_lunch_histories_date"                   json:"date"`
	RegularQuantity int              `gorm:"not null;default:0"                                                  json:"regular_quantity"`
	VegQuantity     int              `gorm:"not null;default:0"                                                  json:"veg_quantity"`
	TotalQuantity   int              `gorm:"not null;default:0"                                                  json:"total_quantity"`
	CreatedAt       time.Time        `gorm:"not null;index:idx_lunch_histories_department_created,priority:2,sort:desc;index:idx_lunch_histories_created,sort:desc" json:"created_at"`
	UpdatedBy       *string          `gorm:"type:varchar(100)"                                                   json:"updated_by"`
}

// TableName 指定表名
func (DepartmentLunchHistory) TableName() string { return "department_lunch_histories" }

// BeforeCreate 生成主键
func (h *DepartmentLunchHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// LunchLock 报餐手动锁定状态 — 对应 lunch_locks
// 有效锁定 = 手动锁定 OR 自动时间窗口，后者不落库
type LunchLock struct {
	Date      businessday.Date `gorm:"type:date;primaryKey" json:"date"`
	Locked    bool             `gorm:"not null;default:false" json:"locked"`
	LockedAt  *time.Time       `json:"locked_at"`
	LockedBy  *string          `gorm:"type:varchar(100)" json:"locked_by"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (LunchLock) TableName() string { return "lunch_locks" }

// All 全部持久化模型，供 AutoMigrate 使用
func All() []interface{} {
	return []interface{}{
		&DepartmentLunch{},
		&DepartmentLunchHistory{},
		&LunchLock{},
	}
}
