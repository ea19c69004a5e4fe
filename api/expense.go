package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/middleware"
	"expensetracker/models"
	"expensetracker/report"
	"expensetracker/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// maxImportRecords 单次导入上限
const maxImportRecords = 5000

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	cfg      *config.Config
	cache    *service.ReportCache
	notifier service.Notifier
	now      func() time.Time
}

// NewExpenseHandler 创建消费记录处理器，cache 与 notifier 可为 nil
func NewExpenseHandler(cfg *config.Config, cache *service.ReportCache, notifier service.Notifier) *ExpenseHandler {
	return &ExpenseHandler{
		cfg:      cfg,
		cache:    cache,
		notifier: notifier,
		now:      cfg.Now,
	}
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0" example:"12.5"`
	Category string  `json:"category" example:"Food"`
	Note     string  `json:"note" binding:"max=255" example:"午餐"`
	Date     string  `json:"date" example:"2024-03-15"` // 为空则为今天
}

// UpdateExpenseRequest 更新消费记录请求，未提供的字段保持不变
type UpdateExpenseRequest struct {
	Amount   *float64 `json:"amount" binding:"omitempty,gt=0" example:"12.5"`
	Category *string  `json:"category" example:"Food"`
	Note     *string  `json:"note" binding:"omitempty,max=255" example:"午餐"`
	Date     *string  `json:"date" example:"2024-03-15"`
}

// ExpenseListRequest 消费记录列表筛选
type ExpenseListRequest struct {
	Category  string `form:"category" example:"Food"`
	StartDate string `form:"start_date" example:"2024-01-01"`
	EndDate   string `form:"end_date" example:"2024-12-31"`
}

// CreateExpenseResponse 创建结果，alert 仅在触发日预算提醒时返回
type CreateExpenseResponse struct {
	Expense ExpenseResponse `json:"expense"`
	Alert   *report.Alert   `json:"alert,omitempty"`
}

// ImportSkipped 导入时跳过的记录
type ImportSkipped struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	Imported int             `json:"imported"`
	Skipped  []ImportSkipped `json:"skipped"`
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 金额必须大于 0；类别不区分大小写，未知类别归为 Other；日期为空时取今天。新增今天的消费时检查日预算并返回提醒。
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=CreateExpenseResponse} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	amount, ok := positiveMoney(req.Amount)
	if !ok {
		BadRequest(c, "金额必须大于 0（精确到分）")
		return
	}

	now := h.now()
	date := now
	if strings.TrimSpace(req.Date) != "" {
		d, err := report.ParseDate(req.Date)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		date = d
	}

	expense := models.Expense{
		UserID:   userID,
		Amount:   amount,
		Category: string(report.ParseCategory(req.Category)),
		Note:     strings.TrimSpace(req.Note),
		Date:     storeDate(date),
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消费记录失败"))
		return
	}
	h.cache.Invalidate(c.Request.Context(), userID)

	alert := h.checkDailyAlert(c.Request.Context(), userID, expense, now)
	if alert != nil {
		h.notify(c.Request.Context(), userID, expense.ID, *alert)
	}

	SuccessWithMessage(c, "创建成功", CreateExpenseResponse{
		Expense: toExpenseResponse(expense),
		Alert:   alert,
	})
}

// checkDailyAlert 新记录属于今天时，对比当日已有消费与日预算
func (h *ExpenseHandler) checkDailyAlert(ctx context.Context, userID uint, expense models.Expense, now time.Time) *report.Alert {
	incoming := toRecord(expense)
	if !report.DayWindow(now).Contains(incoming) {
		return nil
	}

	budget, err := loadBudget(userID, h.cfg)
	if err != nil {
		slog.WarnContext(ctx, "读取预算失败，跳过预算提醒", "user_id", userID, "error", err)
		return nil
	}

	var today []models.Expense
	if err := database.DB.Where("user_id = ? AND date = ? AND id <> ?", userID, expense.Date, expense.ID).
		Find(&today).Error; err != nil {
		slog.WarnContext(ctx, "读取当日消费失败，跳过预算提醒", "user_id", userID, "error", err)
		return nil
	}

	return report.CheckDailyAlert(toRecords(today), toBudget(budget), incoming, now)
}

// notify 异步投递预算提醒
func (h *ExpenseHandler) notify(ctx context.Context, userID, expenseID uint, alert report.Alert) {
	if h.notifier == nil {
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		slog.WarnContext(ctx, "读取用户失败，跳过预算提醒投递", "user_id", userID, "error", err)
		return
	}

	event := service.BudgetAlertEvent{
		UserID:    userID,
		Name:      user.Name,
		Email:     user.Email,
		ExpenseID: expenseID,
		Alert:     alert,
		Timestamp: h.now(),
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := h.notifier.NotifyBudgetAlert(ctx, event); err != nil {
			slog.WarnContext(ctx, "预算提醒投递失败",
				"notifier", h.notifier.Name(),
				"user_id", userID,
				"expense_id", expenseID,
				"error", err,
			)
		}
	}(context.WithoutCancel(ctx))
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 按日期倒序（同日按创建时间倒序）返回当前用户的消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param category query string false "类别筛选"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]ExpenseResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/expenses/list [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	query := database.DB.Model(&models.Expense{}).Where("user_id = ?", userID)

	if req.Category != "" {
		query = query.Where("category = ?", string(report.ParseCategory(req.Category)))
	}
	if req.StartDate != "" {
		d, err := report.ParseDate(req.StartDate)
		if err != nil {
			BadRequest(c, "开始日期格式错误，应为: 2006-01-02")
			return
		}
		query = query.Where("date >= ?", storeDate(d))
	}
	if req.EndDate != "" {
		d, err := report.ParseDate(req.EndDate)
		if err != nil {
			BadRequest(c, "结束日期格式错误，应为: 2006-01-02")
			return
		}
		query = query.Where("date <= ?", storeDate(d))
	}

	var expenses []models.Expense
	if err := query.Order("date DESC").Order("created_at DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, toExpenseResponses(expenses))
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

func findExpense(c *gin.Context, userID, id uint) (models.Expense, bool) {
	var expense models.Expense
	err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error
	if err == nil {
		return expense, true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "记录不存在")
	} else {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
	}
	return expense, false
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=ExpenseResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	expense, ok := findExpense(c, userID, id)
	if !ok {
		return
	}

	Success(c, toExpenseResponse(expense))
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body UpdateExpenseRequest true "更新内容"
// @Success 200 {object} Response{data=ExpenseResponse} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var amount *float64
	if req.Amount != nil {
		v, ok := positiveMoney(*req.Amount)
		if !ok {
			BadRequest(c, "金额必须大于 0（精确到分）")
			return
		}
		amount = &v
	}

	var date *time.Time
	if req.Date != nil {
		d, err := report.ParseDate(*req.Date)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		d = storeDate(d)
		date = &d
	}
	if amount == nil && req.Category == nil && req.Note == nil && date == nil {
		BadRequest(c, "没有需要更新的字段")
		return
	}

	expense, ok := findExpense(c, userID, id)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if amount != nil {
		expense.Amount = *amount
		updates["amount"] = expense.Amount
	}
	if req.Category != nil {
		expense.Category = string(report.ParseCategory(*req.Category))
		updates["category"] = expense.Category
	}
	if req.Note != nil {
		expense.Note = strings.TrimSpace(*req.Note)
		updates["note"] = expense.Note
	}
	if date != nil {
		expense.Date = *date
		updates["date"] = expense.Date
	}

	if err := database.DB.Model(&expense).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}
	h.cache.Invalidate(c.Request.Context(), userID)

	SuccessWithMessage(c, "更新成功", toExpenseResponse(expense))
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	result := database.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Expense{})
	if result.Error != nil {
		InternalError(c, SafeErrorMessage(result.Error, "删除失败"))
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "记录不存在")
		return
	}
	h.cache.Invalidate(c.Request.Context(), userID)

	SuccessWithMessage(c, "删除成功", nil)
}

// Import 批量导入消费记录
// @Summary 批量导入消费记录
// @Description 接收宽松格式的记录数组（例如浏览器本地存储导出），金额非法或为 0、日期无法解析的记录被跳过
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []report.RawRecord true "记录数组"
// @Success 200 {object} Response{data=ImportResponse} "导入完成"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/expenses/import [post]
func (h *ExpenseHandler) Import(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var raws []report.RawRecord
	if err := c.ShouldBindJSON(&raws); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if len(raws) > maxImportRecords {
		BadRequest(c, fmt.Sprintf("单次最多导入 %d 条记录", maxImportRecords))
		return
	}

	resp := ImportResponse{Skipped: []ImportSkipped{}}
	expenses := make([]models.Expense, 0, len(raws))
	for i, raw := range raws {
		rec, err := report.NewRecord(raw)
		if err != nil {
			resp.Skipped = append(resp.Skipped, ImportSkipped{Index: i, Reason: "日期格式错误"})
			continue
		}
		// 列为 decimal(10,2)，按入库精度判断
		amount := rec.Amount.Round(2)
		if !amount.IsPositive() {
			resp.Skipped = append(resp.Skipped, ImportSkipped{Index: i, Reason: "金额无效"})
			continue
		}
		expenses = append(expenses, models.Expense{
			UserID:   userID,
			Amount:   amount.InexactFloat64(),
			Category: string(rec.Category),
			Note:     rec.Note,
			Date:     storeDate(rec.Date),
		})
	}

	if len(expenses) > 0 {
		if err := database.DB.CreateInBatches(&expenses, 100).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "导入失败"))
			return
		}
		h.cache.Invalidate(c.Request.Context(), userID)
	}
	resp.Imported = len(expenses)

	SuccessWithMessage(c, "导入完成", resp)
}
