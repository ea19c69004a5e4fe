package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategorySummary 当月某个类别的汇总
type CategorySummary struct {
	Name       Category `json:"name"`
	Total      float64  `json:"total"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"` // 占当月总支出的百分比
}

// CategoryBreakdown 类别 -> 汇总，始终包含全部 7 个类别
type CategoryBreakdown map[Category]CategorySummary

// SummarizeCategories 统计 now 所在自然月内各类别的金额、笔数和占比。
// 没有消费的类别同样出现在结果中，数值全为 0。
func SummarizeCategories(records []Record, now time.Time) CategoryBreakdown {
	month := MonthWindow(now)

	totals := make(map[Category]decimal.Decimal, len(categoryOrder))
	counts := make(map[Category]int, len(categoryOrder))
	monthTotal := decimal.Zero
	for _, r := range records {
		if !month.Contains(r) {
			continue
		}
		cat := r.category()
		totals[cat] = totals[cat].Add(r.Amount)
		counts[cat]++
		monthTotal = monthTotal.Add(r.Amount)
	}

	out := make(CategoryBreakdown, len(categoryOrder))
	for _, cat := range categoryOrder {
		total := totals[cat]
		pct := decimal.Zero
		if monthTotal.IsPositive() {
			pct = total.Div(monthTotal).Mul(hundred)
		}
		out[cat] = CategorySummary{
			Name:       cat,
			Total:      money(total),
			Count:      counts[cat],
			Percentage: pct.InexactFloat64(),
		}
	}
	return out
}

// Total 当月总支出
func (b CategoryBreakdown) Total() float64 {
	total := decimal.Zero
	for _, s := range b {
		total = total.Add(decimal.NewFromFloat(s.Total))
	}
	return money(total)
}

// ActiveCount 当月有支出的类别数量
func (b CategoryBreakdown) ActiveCount() int {
	n := 0
	for _, s := range b {
		if s.Total > 0 {
			n++
		}
	}
	return n
}

// Sorted 按金额倒序返回；金额相同按类别展示顺序
func (b CategoryBreakdown) Sorted() []CategorySummary {
	list := make([]CategorySummary, 0, len(b))
	for _, cat := range categoryOrder {
		if s, ok := b[cat]; ok {
			list = append(list, s)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Total > list[j].Total
	})
	return list
}

// MostUsed 笔数最多的类别，笔数相同时取金额更大的；全部为 0 时名称为 None
func MostUsed(b CategoryBreakdown) CategorySummary {
	best := CategorySummary{Name: NoCategory}
	for _, cat := range categoryOrder {
		s, ok := b[cat]
		if !ok {
			continue
		}
		if s.Count > best.Count || (s.Count == best.Count && s.Total > best.Total) {
			best = s
		}
	}
	return best
}

// HighestShare 占比最高的类别；全部为 0 时名称为 None
func HighestShare(b CategoryBreakdown) CategorySummary {
	best := CategorySummary{Name: NoCategory}
	for _, cat := range categoryOrder {
		if s, ok := b[cat]; ok && s.Percentage > best.Percentage {
			best = s
		}
	}
	return best
}
