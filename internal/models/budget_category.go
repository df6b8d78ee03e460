package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget category types.
const (
	CategoryTypeSpent   = "Spent"
	CategoryTypeSavings = "Savings"
)

// BudgetCategory represents a named planned allocation inside a month.
type BudgetCategory struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string          `gorm:"type:uuid;index;not null" json:"user_id"`
	MonthID   string          `gorm:"type:uuid;index;not null" json:"month_id"`
	Name      string          `gorm:"size:64;not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Type      string          `gorm:"size:16;index;not null" json:"type"` // Spent / Savings
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (b *BudgetCategory) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
