package api

import (
	"time"

	"expensetracker/config"
	"expensetracker/middleware"
	"expensetracker/report"
	"expensetracker/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 报表处理器
type ReportHandler struct {
	cfg   *config.Config
	cache *service.ReportCache
	now   func() time.Time
}

// NewReportHandler 创建报表处理器
func NewReportHandler(cfg *config.Config, cache *service.ReportCache) *ReportHandler {
	return &ReportHandler{cfg: cfg, cache: cache, now: cfg.Now}
}

// CategoryReportResponse 当月类别汇总
type CategoryReportResponse struct {
	Month        string                   `json:"month" example:"2024-03"`
	Total        float64                  `json:"total"`
	ActiveCount  int                      `json:"active_count"`
	Categories   []report.CategorySummary `json:"categories"` // 按金额倒序
	MostUsed     report.CategorySummary   `json:"most_used"`
	HighestShare report.CategorySummary   `json:"highest_share"`
}

// cached 先查缓存，未命中时读取全部记录计算并写回
func (h *ReportHandler) cached(c *gin.Context, view, param string, dest any, compute func([]report.Record) any) {
	userID := middleware.GetCurrentUserID(c)
	ctx := c.Request.Context()

	if h.cache.Get(ctx, userID, view, param, dest) {
		Success(c, dest)
		return
	}

	expenses, err := loadExpenses(userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	result := compute(toRecords(expenses))
	h.cache.Set(ctx, userID, view, param, result)
	Success(c, result)
}

// Reports 按周期汇总
// @Summary 按周期汇总消费
// @Description 按 daily / weekly（周一开始）/ monthly 分桶，周期键倒序，最多返回 10 个；未知周期按 daily 处理
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param period query string false "daily | weekly | monthly" default(daily)
// @Success 200 {object} Response{data=[]report.Bucket} "获取成功"
// @Router /api/reports [get]
func (h *ReportHandler) Reports(c *gin.Context) {
	period := report.ParsePeriod(c.Query("period"))

	var buckets []report.Bucket
	h.cached(c, "reports", string(period), &buckets, func(records []report.Record) any {
		return report.Aggregate(records, period)
	})
}

// Categories 当月类别汇总
// @Summary 当月类别汇总
// @Description 返回本月 7 个类别的金额、笔数、占比，以及笔数最多和占比最高的类别
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=CategoryReportResponse} "获取成功"
// @Router /api/reports/categories [get]
func (h *ReportHandler) Categories(c *gin.Context) {
	now := h.now()
	month := now.Format("2006-01")

	var resp CategoryReportResponse
	h.cached(c, "categories", month, &resp, func(records []report.Record) any {
		breakdown := report.SummarizeCategories(records, now)
		return CategoryReportResponse{
			Month:        month,
			Total:        breakdown.Total(),
			ActiveCount:  breakdown.ActiveCount(),
			Categories:   breakdown.Sorted(),
			MostUsed:     report.MostUsed(breakdown),
			HighestShare: report.HighestShare(breakdown),
		}
	})
}

// Stats 仪表盘统计
// @Summary 仪表盘统计
// @Description 本月总额、今日总额与笔数、最近 7 天日均、本月金额最高的类别
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=report.Stats} "获取成功"
// @Router /api/reports/stats [get]
func (h *ReportHandler) Stats(c *gin.Context) {
	now := h.now()

	var stats report.Stats
	h.cached(c, "stats", now.Format(report.DateLayout), &stats, func(records []report.Record) any {
		return report.ComputeStats(records, now)
	})
}
