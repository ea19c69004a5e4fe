package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Budget 预算配置（日/周/月相互独立，不强制保持换算关系）
type Budget struct {
	Monthly decimal.Decimal
	Weekly  decimal.Decimal
	Daily   decimal.Decimal
}

// 默认预算
var (
	DefaultMonthlyBudget = decimal.NewFromInt(1000)
	DefaultWeeklyBudget  = decimal.NewFromInt(250)
	DefaultDailyBudget   = decimal.NewFromInt(35)
)

// DefaultBudget 新用户的默认预算：月 1000 / 周 250 / 日 35
func DefaultBudget() Budget {
	return Budget{
		Monthly: DefaultMonthlyBudget,
		Weekly:  DefaultWeeklyBudget,
		Daily:   DefaultDailyBudget,
	}
}

// NewBudget 由 float64 构造预算
func NewBudget(monthly, weekly, daily float64) Budget {
	return Budget{
		Monthly: decimal.NewFromFloat(monthly),
		Weekly:  decimal.NewFromFloat(weekly),
		Daily:   decimal.NewFromFloat(daily),
	}
}

var (
	weeksPerMonth = decimal.RequireFromString("4.33")
	daysPerMonth  = decimal.NewFromInt(30)
)

// DeriveBudget 根据月预算推算周预算（月/4.33）和日预算（月/30），保留两位小数。
// 仅为便捷计算，保存时三者仍各自独立。
func DeriveBudget(monthly decimal.Decimal) Budget {
	if !monthly.IsPositive() {
		return Budget{Monthly: decimal.Zero, Weekly: decimal.Zero, Daily: decimal.Zero}
	}
	return Budget{
		Monthly: monthly,
		Weekly:  monthly.Div(weeksPerMonth).Round(2),
		Daily:   monthly.Div(daysPerMonth).Round(2),
	}
}

// Level 预算使用状态
type Level string

const (
	LevelSafe     Level = "safe"
	LevelModerate Level = "moderate"
	LevelWarning  Level = "warning"
	LevelDanger   Level = "danger"
	LevelExceeded Level = "exceeded"
)

var (
	hundred = decimal.NewFromInt(100)

	// 阈值按从高到低的顺序匹配
	levelThresholds = []struct {
		min   decimal.Decimal
		level Level
	}{
		{decimal.NewFromInt(100), LevelExceeded},
		{decimal.NewFromInt(90), LevelDanger},
		{decimal.NewFromInt(75), LevelWarning},
		{decimal.NewFromInt(50), LevelModerate},
	}
)

// ClassifyLevel 根据使用百分比划分状态
func ClassifyLevel(percentage float64) Level {
	return classify(decimal.NewFromFloat(percentage))
}

func classify(pct decimal.Decimal) Level {
	for _, t := range levelThresholds {
		if pct.GreaterThanOrEqual(t.min) {
			return t.level
		}
	}
	return LevelSafe
}

// WindowStatus 某个时间窗口内的预算使用情况
type WindowStatus struct {
	Spent             float64 `json:"spent"`
	Budget            float64 `json:"budget"`
	Percentage        float64 `json:"percentage"`
	DisplayPercentage float64 `json:"display_percentage"` // 进度条展示用，封顶 100
	Remaining         float64 `json:"remaining"`          // 可能为负
	Exceeded          float64 `json:"exceeded"`           // 超出金额，未超出为 0
	Level             Level   `json:"level"`
	WindowStart       string  `json:"window_start"`
	WindowEnd         string  `json:"window_end"`
}

// BudgetStatus 日/周/月三个窗口的预算评估结果
type BudgetStatus struct {
	Daily   WindowStatus `json:"daily"`
	Weekly  WindowStatus `json:"weekly"`
	Monthly WindowStatus `json:"monthly"`
}

// Window 闭区间日期窗口 [Start, End]
type Window struct {
	Start string
	End   string
}

// Contains 日期键按字典序比较，对 ISO 日期等价于时间先后
func (w Window) Contains(r Record) bool {
	k := r.DateKey()
	return k >= w.Start && k <= w.End
}

// DayWindow now 所在的自然日
func DayWindow(now time.Time) Window {
	k := dayKey(now)
	return Window{Start: k, End: k}
}

// WeekWindow now 所在的周（周一至周日）
func WeekWindow(now time.Time) Window {
	start := weekStart(now)
	return Window{Start: dayKey(start), End: dayKey(start.AddDate(0, 0, 6))}
}

// MonthWindow now 所在的自然月
func MonthWindow(now time.Time) Window {
	first := civil(now).AddDate(0, 0, 1-now.Day())
	return Window{Start: dayKey(first), End: dayKey(first.AddDate(0, 1, -1))}
}

// EvaluateBudget 计算日/周/月三个窗口的已花费、剩余与状态。now 由调用方注入。
func EvaluateBudget(records []Record, budget Budget, now time.Time) BudgetStatus {
	return BudgetStatus{
		Daily:   evaluateWindow(records, budget.Daily, DayWindow(now)),
		Weekly:  evaluateWindow(records, budget.Weekly, WeekWindow(now)),
		Monthly: evaluateWindow(records, budget.Monthly, MonthWindow(now)),
	}
}

func evaluateWindow(records []Record, amount decimal.Decimal, w Window) WindowStatus {
	spent, _ := sum(records, w.Contains)

	// 预算为 0 或负数时不做除法
	pct := decimal.Zero
	if amount.IsPositive() {
		pct = spent.Div(amount).Mul(hundred)
	}
	display := pct
	if display.GreaterThan(hundred) {
		display = hundred
	}

	remaining := amount.Sub(spent)
	exceeded := decimal.Zero
	level := classify(pct)
	if level == LevelExceeded {
		exceeded = spent.Sub(amount)
	}

	return WindowStatus{
		Spent:             money(spent),
		Budget:            money(amount),
		Percentage:        pct.InexactFloat64(),
		DisplayPercentage: display.InexactFloat64(),
		Remaining:         money(remaining),
		Exceeded:          money(exceeded),
		Level:             level,
		WindowStart:       w.Start,
		WindowEnd:         w.End,
	}
}

// AlertKind 预算提醒类型
type AlertKind string

const (
	AlertApproaching AlertKind = "approaching"
	AlertExceeded    AlertKind = "exceeded"
)

var approachingRatio = decimal.RequireFromString("0.8")

// Alert 新增消费后的日预算提醒
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Spent   float64   `json:"spent"`
	Budget  float64   `json:"budget"`
	Date    string    `json:"date"`
	Message string    `json:"message"`
}

// CheckDailyAlert 在 existing（不含 incoming）基础上加上新增记录，检查当日预算：
// 超过日预算返回 exceeded，超过 80% 返回 approaching，否则返回 nil。
// 新记录不属于今天时不提醒。
func CheckDailyAlert(existing []Record, budget Budget, incoming Record, now time.Time) *Alert {
	if !budget.Daily.IsPositive() {
		return nil
	}
	today := DayWindow(now)
	if !today.Contains(incoming) {
		return nil
	}

	spent, _ := sum(existing, today.Contains)
	spent = spent.Add(incoming.Amount)

	var kind AlertKind
	var msg string
	switch {
	case spent.GreaterThan(budget.Daily):
		kind = AlertExceeded
		msg = fmt.Sprintf("Daily budget exceeded! Spent: %s / Budget: %s",
			spent.StringFixed(2), budget.Daily.StringFixed(2))
	case spent.GreaterThan(budget.Daily.Mul(approachingRatio)):
		kind = AlertApproaching
		msg = fmt.Sprintf("Approaching daily budget limit: %s / %s",
			spent.StringFixed(2), budget.Daily.StringFixed(2))
	default:
		return nil
	}

	return &Alert{
		Kind:    kind,
		Spent:   money(spent),
		Budget:  money(budget.Daily),
		Date:    today.Start,
		Message: msg,
	}
}
