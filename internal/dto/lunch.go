package dto

import "time"

// ── 报餐模块 DTO ──

// SetDepartmentLunchRequest 部门报餐请求
// date 为空时使用当前报餐日期；department_id 为空时使用操作者所在部门
// 仅提供 total_quantity 时按历史数据处理：regular = total
type SetDepartmentLunchRequest struct {
	Date            string `json:"date"`
	DepartmentID    string `json:"department_id"    binding:"omitempty,max=100"`
	RegularQuantity *int   `json:"regular_quantity"`
	VegQuantity     *int   `json:"veg_quantity"`
	TotalQuantity   *int   `json:"total_quantity"`
}

// ClearDepartmentLunchRequest 清零部门报餐请求（管理员）
type ClearDepartmentLunchRequest struct {
	Date         string `json:"date"`
	DepartmentID string `json:"department_id" binding:"omitempty,max=100"`
}

// DepartmentLunchQuery 查询部门报餐参数
type DepartmentLunchQuery struct {
	Date         string `form:"date"`
	DepartmentID string `form:"department_id" binding:"omitempty,max=100"`
}

// DateQuery 按日期查询参数
type DateQuery struct {
	Date string `form:"date"`
}

// HistoryQuery 审计历史查询参数
type HistoryQuery struct {
	DepartmentID string `form:"department_id" binding:"omitempty,max=100"`
	Limit        int    `form:"limit"         binding:"omitempty,min=1,max=500"`
}

// DepartmentLunchResponse 部门报餐记录
// 未报餐时返回全 0 记录，updated_at / updated_by 为 null
type DepartmentLunchResponse struct {
	DepartmentID    string     `json:"department_id"`
	Date            string     `json:"date"`
	RegularQuantity int        `json:"regular_quantity"`
	VegQuantity     int        `json:"veg_quantity"`
	TotalQuantity   int        `json:"total_quantity"`
	UpdatedAt       *time.Time `json:"updated_at"`
	UpdatedBy       *string    `json:"updated_by"`
}

// LunchHistoryResponse 报餐审计记录
type LunchHistoryResponse struct {
	ID              string    `json:"id"`
	DepartmentID    string    `json:"department_id"`
	Date            string    `json:"date"`
	RegularQuantity int       `json:"regular_quantity"`
	VegQuantity     int       `json:"veg_quantity"`
	TotalQuantity   int       `json:"total_quantity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedBy       *string   `json:"updated_by"`
}

// LunchSummaryResponse 某日报餐汇总（按部门 ID 升序）
type LunchSummaryResponse struct {
	Date          string                    `json:"date"`
	TotalQuantity int                       `json:"total_quantity"`
	TotalRegular  int                       `json:"total_regular"`
	TotalVeg      int                       `json:"total_veg"`
	Departments   []DepartmentLunchResponse `json:"departments"`
}

// ── 锁定 DTO ──

// SetLockRequest 设置 / 解除锁定请求（管理员）
type SetLockRequest struct {
	Date   string `json:"date"`
	Locked *bool  `json:"locked" binding:"required"`
}

// LunchLockResponse 有效锁定状态（手动锁定与自动时间窗口合并）
// reason: manual | automatic，未锁定时为空
// manual_locked 为已保存的手动锁定开关，窗口内解除手动锁定后为 false 而 locked 仍为 true
type LunchLockResponse struct {
	Date         string     `json:"date"`
	Locked       bool       `json:"locked"`
	ManualLocked bool       `json:"manual_locked"`
	LockedAt     *time.Time `json:"locked_at"`
	LockedBy     *string    `json:"locked_by"`
	Reason       string     `json:"reason,omitempty"`
}

// ActiveDateResponse 当前报餐日期与锁定窗口
type ActiveDateResponse struct {
	ActiveDate      string    `json:"active_date"`
	Today           string    `json:"today"`
	Locked          bool      `json:"locked"`
	LockWindowStart time.Time `json:"lock_window_start"`
	LockWindowEnd   time.Time `json:"lock_window_end"`
	Timezone        string    `json:"timezone"`
}
