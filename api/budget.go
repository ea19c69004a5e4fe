package api

import (
	"strconv"
	"time"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/middleware"
	"expensetracker/report"
	"expensetracker/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BudgetHandler 预算处理器
type BudgetHandler struct {
	cfg   *config.Config
	cache *service.ReportCache
	now   func() time.Time
}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler(cfg *config.Config, cache *service.ReportCache) *BudgetHandler {
	return &BudgetHandler{cfg: cfg, cache: cache, now: cfg.Now}
}

// UpdateBudgetRequest 更新预算请求，三个额度相互独立
type UpdateBudgetRequest struct {
	MonthlyBudget float64 `json:"monthly_budget" binding:"required,gt=0" example:"1000"`
	WeeklyBudget  float64 `json:"weekly_budget" binding:"required,gt=0" example:"250"`
	DailyBudget   float64 `json:"daily_budget" binding:"required,gt=0" example:"35"`
}

// Get 获取预算
// @Summary 获取预算
// @Description 获取当前用户的预算，首次访问时按默认值（月 1000 / 周 250 / 日 35）创建
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=BudgetResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/budget [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	budget, err := loadBudget(userID, h.cfg)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "获取预算失败"))
		return
	}

	Success(c, toBudgetResponse(toBudget(budget)))
}

// Update 更新预算
// @Summary 更新预算
// @Description 三个额度均必须大于 0，保存时不做换算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateBudgetRequest true "预算"
// @Success 200 {object} Response{data=BudgetResponse} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/budget [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "预算必须为大于 0 的数字"))
		return
	}

	budget, err := loadBudget(userID, h.cfg)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "获取预算失败"))
		return
	}

	budget.MonthlyBudget = req.MonthlyBudget
	budget.WeeklyBudget = req.WeeklyBudget
	budget.DailyBudget = req.DailyBudget
	if err := database.DB.Save(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新预算失败"))
		return
	}
	h.cache.Invalidate(c.Request.Context(), userID)

	SuccessWithMessage(c, "更新成功", toBudgetResponse(toBudget(budget)))
}

// Status 预算使用情况
// @Summary 预算使用情况
// @Description 计算今天、本周（周一开始）、本月的消费与预算对比
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=report.BudgetStatus} "获取成功"
// @Router /api/budget/status [get]
func (h *BudgetHandler) Status(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	now := h.now()
	ctx := c.Request.Context()

	var status report.BudgetStatus
	param := now.Format(report.DateLayout)
	if h.cache.Get(ctx, userID, "budget_status", param, &status) {
		Success(c, status)
		return
	}

	budget, err := loadBudget(userID, h.cfg)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "获取预算失败"))
		return
	}
	expenses, err := loadExpenses(userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	status = report.EvaluateBudget(toRecords(expenses), toBudget(budget), now)
	h.cache.Set(ctx, userID, "budget_status", param, status)

	Success(c, status)
}

// Derive 由月预算推算周/日预算
// @Summary 推算预算
// @Description 周预算 = 月预算 / 4.33，日预算 = 月预算 / 30，仅计算不保存
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param monthly query number true "月预算"
// @Success 200 {object} Response{data=BudgetResponse} "计算成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/budget/derive [get]
func (h *BudgetHandler) Derive(c *gin.Context) {
	monthly, err := strconv.ParseFloat(c.Query("monthly"), 64)
	if err != nil || monthly <= 0 {
		BadRequest(c, "月预算必须为大于 0 的数字")
		return
	}

	Success(c, toBudgetResponse(report.DeriveBudget(decimal.NewFromFloat(monthly))))
}
