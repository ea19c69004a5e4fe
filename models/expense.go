package models

import (
	"time"

	"expensetracker/report"

	"gorm.io/gorm"
)

// Expense 消费记录模型
type Expense struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Amount    float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Category  string         `json:"category" gorm:"size:50;not null;default:Other"`
	Note      string         `json:"note" gorm:"size:255"`
	Date      time.Time      `json:"date" gorm:"type:date;index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	User      User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// GetCategories 获取所有消费类别（按展示顺序）
func GetCategories() []string {
	cats := report.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
