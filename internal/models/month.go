package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Month 表示某个用户某年某月的收入记录和派生的预算字段。
// daily_allocation / total_budgeted / balance_amount 是缓存的派生值，
// 真实值始终可以由收入和预算分类重新算出来。
type Month struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string          `gorm:"type:uuid;index;not null;uniqueIndex:idx_user_month_year" json:"user_id"`
	Month           int             `gorm:"not null;uniqueIndex:idx_user_month_year" json:"month"`
	Year            int             `gorm:"not null;uniqueIndex:idx_user_month_year" json:"year"`
	Income          decimal.Decimal `gorm:"type:numeric;not null" json:"income"`
	DaysInMonth     int             `gorm:"not null" json:"days_in_month"`
	DailyAllocation decimal.Decimal `gorm:"type:numeric;not null" json:"daily_allocation"`
	TotalBudgeted   decimal.Decimal `gorm:"type:numeric;not null" json:"total_budgeted"`
	BalanceAmount   decimal.Decimal `gorm:"type:numeric;not null" json:"balance_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (m *Month) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
