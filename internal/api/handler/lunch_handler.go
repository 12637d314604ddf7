package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HaiNguyen26/Meals-RMG/internal/api/middleware"
	"github.com/HaiNguyen26/Meals-RMG/internal/dto"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
	pkgerrors "github.com/HaiNguyen26/Meals-RMG/pkg/errors"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// 报餐模块错误码
const (
	CodeInvalidDate       = 14001
	CodeMissingDepartment = 14002
	CodeNegativeQuantity  = 14003
	CodeForeignDepartment = 14004
	CodeLunchLocked       = 14005
	CodeWriteConflict     = 14006
	CodeQuantityTooLarge  = 14007
)

// LunchHandler 报餐模块 HTTP 处理器
type LunchHandler struct {
	lunchSvc service.LunchService
}

// NewLunchHandler 创建 LunchHandler
func NewLunchHandler(lunchSvc service.LunchService) *LunchHandler {
	return &LunchHandler{lunchSvc: lunchSvc}
}

// Summary 某日报餐汇总
// GET /api/v1/lunch/summary?date=YYYY-MM-DD
func (h *LunchHandler) Summary(c *gin.Context) {
	var req dto.DateQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	summary, err := h.lunchSvc.Summary(c.Request.Context(), req.Date)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, summary)
}

// SetDepartment 设置部门报餐份数
// POST /api/v1/lunch/department
func (h *LunchHandler) SetDepartment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.SetDepartmentLunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	lunch, err := h.lunchSvc.Set(c.Request.Context(), &req, actor)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, lunch)
}

// GetDepartment 查询部门报餐
// GET /api/v1/lunch/department?date=&department_id=
func (h *LunchHandler) GetDepartment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.DepartmentLunchQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	lunch, err := h.lunchSvc.Get(c.Request.Context(), &req, actor)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, lunch)
}

// DepartmentHistory 本部门报餐审计历史
// GET /api/v1/lunch/department/history?limit=
func (h *LunchHandler) DepartmentHistory(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.HistoryQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	list, err := h.lunchSvc.ListDepartmentHistory(c.Request.Context(), &req, actor)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AuditHistory 全部报餐审计历史（管理员）
// GET /api/v1/lunch/department/audit?limit=
func (h *LunchHandler) AuditHistory(c *gin.Context) {
	var req dto.HistoryQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	list, err := h.lunchSvc.ListAuditHistory(c.Request.Context(), req.Limit)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Clear 清零部门报餐（管理员，不受锁定限制）
// POST /api/v1/lunch/department/clear
func (h *LunchHandler) Clear(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.ClearDepartmentLunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	lunch, err := h.lunchSvc.Clear(c.Request.Context(), &req, actor)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, lunch)
}

// handleBindError 请求体绑定失败：超限返回 413，其余 400
func handleBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
}

// handleLunchError 报餐与锁定模块共用的错误翻译
func handleLunchError(c *gin.Context, err error) {
	var locked *service.LockedError
	switch {
	case errors.As(err, &locked):
		response.ErrorWithDetails(c, http.StatusForbidden, CodeLunchLocked, "该日期报餐已锁定", locked.Reason)
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, CodeInvalidDate, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrMissingDepartment):
		response.BadRequest(c, CodeMissingDepartment, "缺少部门标识")
	case errors.Is(err, service.ErrNegativeQuantity):
		response.BadRequest(c, CodeNegativeQuantity, "份数不能为负数")
	case errors.Is(err, service.ErrQuantityTooLarge):
		response.BadRequest(c, CodeQuantityTooLarge, "份数超出上限")
	case errors.Is(err, service.ErrForeignDepartment):
		response.Forbidden(c, CodeForeignDepartment, "只能操作本部门的报餐")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, CodeWriteConflict, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
