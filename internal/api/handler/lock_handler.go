package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/HaiNguyen26/Meals-RMG/internal/dto"
	"github.com/HaiNguyen26/Meals-RMG/internal/service"
	"github.com/HaiNguyen26/Meals-RMG/pkg/response"
)

// LockHandler 报餐锁定 HTTP 处理器
type LockHandler struct {
	lockSvc service.LockService
}

// NewLockHandler 创建 LockHandler
func NewLockHandler(lockSvc service.LockService) *LockHandler {
	return &LockHandler{lockSvc: lockSvc}
}

// SetLock 设置 / 解除手动锁定（管理员）
// POST /api/v1/lunch/lock
func (h *LockHandler) SetLock(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	lock, err := h.lockSvc.SetLock(c.Request.Context(), &req, actor)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, lock)
}

// GetLock 查询有效锁定状态
// GET /api/v1/lunch/lock?date=YYYY-MM-DD
func (h *LockHandler) GetLock(c *gin.Context) {
	var req dto.DateQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	lock, err := h.lockSvc.GetLock(c.Request.Context(), req.Date)
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, lock)
}

// ActiveDate 当前报餐日期与今日锁定窗口
// GET /api/v1/lunch/active-date
func (h *LockHandler) ActiveDate(c *gin.Context) {
	info, err := h.lockSvc.ActiveDate(c.Request.Context())
	if err != nil {
		handleLunchError(c, err)
		return
	}

	response.OK(c, info)
}
