package api

import (
	"errors"
	"time"

	"expensetracker/config"
	"expensetracker/database"
	"expensetracker/models"
	"expensetracker/report"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExpenseResponse 消费记录返回，日期为 YYYY-MM-DD
type ExpenseResponse struct {
	ID        uint      `json:"id" example:"1"`
	Amount    float64   `json:"amount" example:"12.50"`
	Category  string    `json:"category" example:"Food"`
	Note      string    `json:"note" example:"午餐"`
	Date      string    `json:"date" example:"2024-03-15"`
	CreatedAt time.Time `json:"created_at"`
}

// BudgetResponse 预算返回
type BudgetResponse struct {
	MonthlyBudget float64 `json:"monthly_budget" example:"1000"`
	WeeklyBudget  float64 `json:"weekly_budget" example:"250"`
	DailyBudget   float64 `json:"daily_budget" example:"35"`
}

func toExpenseResponse(e models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:        e.ID,
		Amount:    e.Amount,
		Category:  e.Category,
		Note:      e.Note,
		Date:      e.Date.Format(report.DateLayout),
		CreatedAt: e.CreatedAt,
	}
}

func toExpenseResponses(list []models.Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

func toRecord(e models.Expense) report.Record {
	return report.Record{
		ID:        e.ID,
		Amount:    report.ParseAmount(e.Amount),
		Category:  report.ParseCategory(e.Category),
		Note:      e.Note,
		Date:      e.Date,
		CreatedAt: e.CreatedAt,
	}
}

func toRecords(list []models.Expense) []report.Record {
	out := make([]report.Record, 0, len(list))
	for _, e := range list {
		out = append(out, toRecord(e))
	}
	return out
}

// storeDate 将日历日期转换为数据库使用的本地零点
func storeDate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.Local)
}

// loadExpenses 按日期倒序、同日按创建时间倒序读取用户全部记录
func loadExpenses(userID uint) ([]models.Expense, error) {
	var expenses []models.Expense
	err := database.DB.Where("user_id = ?", userID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

// loadBudget 读取用户预算，不存在时按默认值创建
func loadBudget(userID uint, cfg *config.Config) (models.Budget, error) {
	var budget models.Budget
	err := database.DB.Where("user_id = ?", userID).First(&budget).Error
	if err == nil {
		return budget, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return budget, err
	}

	def := report.DefaultBudget()
	budget = models.Budget{
		UserID:        userID,
		MonthlyBudget: def.Monthly.InexactFloat64(),
		WeeklyBudget:  def.Weekly.InexactFloat64(),
		DailyBudget:   def.Daily.InexactFloat64(),
	}
	if cfg != nil {
		budget.MonthlyBudget = cfg.Budget.Monthly
		budget.WeeklyBudget = cfg.Budget.Weekly
		budget.DailyBudget = cfg.Budget.Daily
	}

	// 并发首次访问时另一请求可能已创建，冲突时读回已有记录
	result := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&budget)
	if result.Error != nil {
		return budget, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.Budget
		if err := database.DB.Where("user_id = ?", userID).First(&existing).Error; err != nil {
			return existing, err
		}
		return existing, nil
	}
	return budget, nil
}

func toBudget(b models.Budget) report.Budget {
	return report.NewBudget(b.MonthlyBudget, b.WeeklyBudget, b.DailyBudget)
}

func toBudgetResponse(b report.Budget) BudgetResponse {
	return BudgetResponse{
		MonthlyBudget: roundMoney(b.Monthly),
		WeeklyBudget:  roundMoney(b.Weekly),
		DailyBudget:   roundMoney(b.Daily),
	}
}

func roundMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// positiveMoney 按分取整，取整后不大于 0 视为无效
func positiveMoney(v float64) (float64, bool) {
	d := decimal.NewFromFloat(v).Round(2)
	return d.InexactFloat64(), d.IsPositive()
}
