package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StatementRow 对账单中的一笔支出
type StatementRow struct {
	Date      string   `json:"date"`
	CreatedAt string   `json:"created_at,omitempty"`
	Note      string   `json:"note"`
	Category  Category `json:"category"`
	Amount    float64  `json:"amount"`
	Balance   float64  `json:"balance"` // 扣除本笔后的余额
}

// Statement 以月预算为期初余额的支出对账单
type Statement struct {
	Period           string         `json:"period"` // 2024-03
	GeneratedAt      time.Time      `json:"generated_at"`
	OpeningBalance   float64        `json:"opening_balance"`
	TotalExpenses    float64        `json:"total_expenses"`
	ClosingBalance   float64        `json:"closing_balance"`
	TransactionCount int            `json:"transaction_count"`
	Rows             []StatementRow `json:"rows"`
}

// BuildStatement 按日期倒序（同日按创建时间倒序）列出全部记录，
// 从月预算开始逐笔扣减得到余额。
func BuildStatement(records []Record, budget Budget, now time.Time) Statement {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sorted[i].DateKey(), sorted[j].DateKey()
		if ki != kj {
			return ki > kj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	balance := budget.Monthly
	total := decimal.Zero
	rows := make([]StatementRow, 0, len(sorted))
	for _, r := range sorted {
		balance = balance.Sub(r.Amount)
		total = total.Add(r.Amount)

		row := StatementRow{
			Date:     r.DateKey(),
			Note:     r.Note,
			Category: r.category(),
			Amount:   money(r.Amount),
			Balance:  money(balance),
		}
		if !r.CreatedAt.IsZero() {
			row.CreatedAt = r.CreatedAt.Format("15:04")
		}
		rows = append(rows, row)
	}

	return Statement{
		Period:           monthKey(now),
		GeneratedAt:      now,
		OpeningBalance:   money(budget.Monthly),
		TotalExpenses:    money(total),
		ClosingBalance:   money(budget.Monthly.Sub(total)),
		TransactionCount: len(rows),
		Rows:             rows,
	}
}
