package models

import (
	"time"
)

// Budget 用户预算，每个用户一条；日/周/月三个额度各自独立
type Budget struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	MonthlyBudget float64   `json:"monthly_budget" gorm:"type:decimal(10,2);not null"`
	WeeklyBudget  float64   `json:"weekly_budget" gorm:"type:decimal(10,2);not null"`
	DailyBudget   float64   `json:"daily_budget" gorm:"type:decimal(10,2);not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}
