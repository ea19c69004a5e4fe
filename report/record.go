// Package report 实现消费记录的汇总与预算评估逻辑。
//
// 本包只做纯计算：调用方传入完整的记录快照、预算配置以及当前时间，
// 包内不读取全局状态、不访问数据库、不调用 time.Now()。
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 记录日期的字符串格式（不含时间部分）
const DateLayout = "2006-01-02"

// Category 消费类别（固定集合）
type Category string

// 固定的 7 个消费类别
const (
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryEntertainment  Category = "Entertainment"
	CategoryUtilities      Category = "Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryShopping       Category = "Shopping"
	CategoryOther          Category = "Other"

	// NoCategory 选择器在没有任何数据时返回的名称
	NoCategory Category = "None"
)

var categoryOrder = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryShopping,
	CategoryOther,
}

// Categories 按展示顺序返回全部类别
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory 规范化类别名称，大小写不敏感；空值或未知值归为 Other
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range categoryOrder {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// Valid 是否为已知类别
func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// Record 进入汇总逻辑的消费记录，字段已在边界处完成校验与转换
type Record struct {
	ID        uint
	Amount    decimal.Decimal
	Category  Category
	Note      string
	Date      time.Time // 仅年月日有效
	CreatedAt time.Time // 仅用于排序，不参与分桶
}

// DateKey 记录日期的 YYYY-MM-DD 表示
func (r Record) DateKey() string {
	return dayKey(r.Date)
}

func (r Record) category() Category {
	if r.Category.Valid() {
		return r.Category
	}
	return CategoryOther
}

// RawRecord 宽松格式的记录（例如浏览器本地存储导出的 JSON），
// amount 可能是数字、字符串或缺失。
type RawRecord struct {
	ID        uint            `json:"id"`
	Amount    json.RawMessage `json:"amount"`
	Category  string          `json:"category"`
	Note      string          `json:"note"`
	Date      string          `json:"date"`
	CreatedAt string          `json:"created_at"`
}

// ErrInvalidDate 记录日期无法解析
var ErrInvalidDate = errors.New("invalid record date")

// NewRecord 将宽松记录转换为 Record。
// 金额非法时按 0 处理，类别未知时归为 Other；只有日期无法解析时返回错误。
func NewRecord(raw RawRecord) (Record, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return Record{}, err
	}

	var amount any
	if len(raw.Amount) > 0 {
		if err := json.Unmarshal(raw.Amount, &amount); err != nil {
			amount = nil
		}
	}

	rec := Record{
		ID:       raw.ID,
		Amount:   ParseAmount(amount),
		Category: ParseCategory(raw.Category),
		Note:     raw.Note,
		Date:     date,
	}
	if raw.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			rec.CreatedAt = t
		}
	}
	return rec, nil
}

// ParseDate 解析 YYYY-MM-DD 或带时间部分的 ISO 字符串（只取日期部分）
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseAmount 宽松地解析金额：非法、缺失、NaN 或负数一律返回 0
func ParseAmount(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return ParseAmount(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		return ParseAmount(string(x))
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// civil 取 t 在自身时区下的年月日，返回 UTC 零点
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return civil(t).Format(DateLayout)
}

func monthKey(t time.Time) string {
	return civil(t).Format("2006-01")
}

// weekStart 返回包含 t 的那一周的周一（周日属于前一个周一开始的那周）
func weekStart(t time.Time) time.Time {
	day := civil(t)
	wd := int(day.Weekday())
	offset := 1 - wd
	if wd == 0 {
		offset = -6
	}
	return day.AddDate(0, 0, offset)
}

func sum(records []Record, keep func(Record) bool) (decimal.Decimal, int) {
	total := decimal.Zero
	n := 0
	for _, r := range records {
		if keep(r) {
			total = total.Add(r.Amount)
			n++
		}
	}
	return total, n
}

// money 金额输出保留两位小数
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
