package report

import (
	"time"

	"github.com/shopspring/decimal"
)

var sevenDays = decimal.NewFromInt(7)

// Stats 仪表盘统计卡片
type Stats struct {
	MonthTotal        float64  `json:"month_total"`
	TodayTotal        float64  `json:"today_total"`
	TodayCount        int      `json:"today_count"`
	AvgDaily          float64  `json:"avg_daily"` // 最近 7 天（含今天）日均
	TopCategory       Category `json:"top_category"`
	TopCategoryAmount float64  `json:"top_category_amount"`
}

// ComputeStats 计算仪表盘统计。没有记录时全部为 0，TopCategory 为 None。
func ComputeStats(records []Record, now time.Time) Stats {
	month := MonthWindow(now)
	today := DayWindow(now)
	last7 := Window{Start: dayKey(civil(now).AddDate(0, 0, -6)), End: today.End}

	monthTotal, _ := sum(records, month.Contains)
	todayTotal, todayCount := sum(records, today.Contains)
	weekTotal, weekCount := sum(records, last7.Contains)

	avg := decimal.Zero
	if weekCount > 0 {
		avg = weekTotal.Div(sevenDays)
	}

	// 当月金额最高的类别，金额相同取展示顺序靠前的
	top := NoCategory
	topAmount := decimal.Zero
	byCat := make(map[Category]decimal.Decimal)
	for _, r := range records {
		if month.Contains(r) {
			byCat[r.category()] = byCat[r.category()].Add(r.Amount)
		}
	}
	for _, cat := range categoryOrder {
		amt, ok := byCat[cat]
		if !ok {
			continue
		}
		if top == NoCategory || amt.GreaterThan(topAmount) {
			top = cat
			topAmount = amt
		}
	}

	return Stats{
		MonthTotal:        money(monthTotal),
		TodayTotal:        money(todayTotal),
		TodayCount:        todayCount,
		AvgDaily:          money(avg),
		TopCategory:       top,
		TopCategoryAmount: money(topAmount),
	}
}
