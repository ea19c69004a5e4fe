package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/middleware"
	"expensetracker/models"
	"expensetracker/report"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	cfg *config.Config
	now func() time.Time
}

// NewExportHandler 创建导出处理器
func NewExportHandler(cfg *config.Config) *ExportHandler {
	return &ExportHandler{cfg: cfg, now: cfg.Now}
}

// queryExpenses 读取可选日期范围内的记录，日期倒序
func (h *ExportHandler) queryExpenses(c *gin.Context) ([]models.Expense, bool) {
	userID := middleware.GetCurrentUserID(c)
	query := database.DB.Where("user_id = ?", userID)

	if s := c.Query("start_date"); s != "" {
		d, err := report.ParseDate(s)
		if err != nil {
			BadRequest(c, "开始日期格式错误，应为: 2006-01-02")
			return nil, false
		}
		query = query.Where("date >= ?", storeDate(d))
	}
	if s := c.Query("end_date"); s != "" {
		d, err := report.ParseDate(s)
		if err != nil {
			BadRequest(c, "结束日期格式错误，应为: 2006-01-02")
			return nil, false
		}
		query = query.Where("date <= ?", storeDate(d))
	}

	var expenses []models.Expense
	if err := query.Order("date DESC").Order("created_at DESC").Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询数据失败"))
		return nil, false
	}
	return expenses, true
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录
// @Description 导出消费记录为 CSV 文件，可选日期范围
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	expenses, ok := h.queryExpenses(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)

	headers := []string{"ID", "Date", "Category", "Amount", "Note", "Created At"}
	if err := writer.Write(headers); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	for _, expense := range expenses {
		row := []string{
			fmt.Sprintf("%d", expense.ID),
			expense.Date.Format(report.DateLayout),
			expense.Category,
			fmt.Sprintf("%.2f", expense.Amount),
			expense.Note,
			expense.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("expenses_%s.csv", h.now().Format(report.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportJSON 导出消费记录为 JSON
// @Summary 导出消费记录为 JSON
// @Description 导出格式可直接用于 /api/expenses/import
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]ExpenseResponse} "导出成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	expenses, ok := h.queryExpenses(c)
	if !ok {
		return
	}

	Success(c, toExpenseResponses(expenses))
}

// ExportStatement 导出对账单
// @Summary 导出对账单 (Excel)
// @Description 以月预算为期初余额，按日期倒序逐笔扣减，生成 xlsx 对账单
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel 文件"
// @Failure 401 {object} Response "未授权"
// @Router /api/export/statement [get]
func (h *ExportHandler) ExportStatement(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	budget, err := loadBudget(userID, h.cfg)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "获取预算失败"))
		return
	}
	expenses, err := loadExpenses(userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询数据失败"))
		return
	}

	stmt := report.BuildStatement(toRecords(expenses), toBudget(budget), h.now())

	f, err := statementWorkbook(stmt)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 Excel 失败"))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("statement_%s.xlsx", stmt.Period)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

// statementWorkbook 将对账单写入 Excel：摘要区 + 明细表 + 合计行
func statementWorkbook(stmt report.Statement) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := "Statement"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 30)
	f.SetColWidth(sheetName, "D", "D", 16)
	f.SetColWidth(sheetName, "E", "F", 14)

	// 摘要
	f.SetCellValue(sheetName, "A1", "Expense Statement")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	summary := [][2]interface{}{
		{"Period", stmt.Period},
		{"Generated", stmt.GeneratedAt.Format("2006-01-02 15:04")},
		{"Opening Balance", stmt.OpeningBalance},
		{"Total Expenses", stmt.TotalExpenses},
		{"Closing Balance", stmt.ClosingBalance},
		{"Transactions", stmt.TransactionCount},
	}
	for i, kv := range summary {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), kv[0])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), kv[1])
	}

	// 明细
	headerRow := len(summary) + 3
	headers := []string{"Date", "Time", "Description", "Category", "Amount", "Balance"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c%d", 'A'+i, headerRow)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, r := range stmt.Rows {
		row := headerRow + 1 + i
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.Date)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.CreatedAt)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.Note)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(r.Category))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), -r.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Balance)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)
	}

	// 合计
	totalRow := headerRow + 1 + len(stmt.Rows)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total")
	f.MergeCell(sheetName, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("D%d", totalRow))
	f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalRow), -stmt.TotalExpenses)
	f.SetCellValue(sheetName, fmt.Sprintf("F%d", totalRow), stmt.ClosingBalance)
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow), summaryStyle)

	return f, nil
}
