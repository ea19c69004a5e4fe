package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxBuckets 报表最多返回的分桶数量
const MaxBuckets = 10

// Period 报表周期
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod 解析周期参数，未知值按 daily 处理
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeekly:
		return PeriodWeekly
	case PeriodMonthly:
		return PeriodMonthly
	default:
		return PeriodDaily
	}
}

// Key 返回记录在该周期下所属分桶的键
//   - daily:   记录日期 2024-03-04
//   - weekly:  所在周的周一 2024-03-04
//   - monthly: 年月 2024-03
func (p Period) Key(r Record) string {
	switch p {
	case PeriodWeekly:
		return dayKey(weekStart(r.Date))
	case PeriodMonthly:
		return monthKey(r.Date)
	default:
		return dayKey(r.Date)
	}
}

// Bucket 一个周期分桶的汇总
type Bucket struct {
	Period string  `json:"period"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// Aggregate 按周期分桶求和，按键倒序（最近的在前），最多 MaxBuckets 个。
// 空输入返回空切片。
func Aggregate(records []Record, period Period) []Bucket {
	type acc struct {
		total decimal.Decimal
		count int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		key := period.Key(r)
		g, ok := groups[key]
		if !ok {
			g = &acc{total: decimal.Zero}
			groups[key] = g
		}
		g.total = g.total.Add(r.Amount)
		g.count++
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// 键均为 ISO 格式，字典序即时间顺序
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > MaxBuckets {
		keys = keys[:MaxBuckets]
	}

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		buckets = append(buckets, Bucket{
			Period: k,
			Total:  money(g.total),
			Count:  g.count,
		})
	}
	return buckets
}
