package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyExpense 表示某个用户某一天的支出记录和链式递推出来的余额字段。
// 日期用 YYYY-MM-DD 字符串存储，方便按天精确匹配和排序。
// 不变量：remaining = cumulative_budget - amount_spent。
type DailyExpense struct {
	ID                string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string          `gorm:"type:uuid;not null;uniqueIndex:idx_user_date" json:"user_id"`
	MonthID           string          `gorm:"type:uuid;index;not null" json:"month_id"`
	Date              string          `gorm:"size:10;not null;uniqueIndex:idx_user_date" json:"date"`
	AmountSpent       decimal.Decimal `gorm:"type:numeric;not null" json:"amount_spent"`
	AllocatedBudget   decimal.Decimal `gorm:"type:numeric;not null" json:"allocated_budget"`
	CumulativeSavings decimal.Decimal `gorm:"type:numeric;not null" json:"cumulative_savings"`
	CumulativeBudget  decimal.Decimal `gorm:"type:numeric;not null" json:"cumulative_budget"`
	Remaining         decimal.Decimal `gorm:"type:numeric;not null" json:"remaining"`
	Notes             string          `gorm:"size:255" json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (d *DailyExpense) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
