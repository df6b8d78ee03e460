package util

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 金额上限：1 千万
var maxAmount = decimal.NewFromInt(10000000)

// ValidateMonth 验证月份（1-12）
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	return nil
}

// ValidateYear 验证年份（2000-2100）
func ValidateYear(year int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("year must be between 2000 and 2100, got %d", year)
	}
	return nil
}

// ValidateAmount 验证金额（必须非负且不超过上限）
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative, got %s", amount)
	}
	if amount.Cmp(maxAmount) >= 0 {
		return fmt.Errorf("amount too large, got %s", amount)
	}
	return nil
}

// ValidateDate 验证日期格式（必须为 YYYY-MM-DD）
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateCategoryName 验证分类名称（不能为空且长度合理）
func ValidateCategoryName(name string) error {
	if name == "" {
		return fmt.Errorf("category name is empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("category name too long, max 64 characters")
	}
	return nil
}

// ValidateCategoryType 验证分类类型（只能是 Spent 或 Savings）
func ValidateCategoryType(t string) error {
	if t != "Spent" && t != "Savings" {
		return fmt.Errorf("category type must be Spent or Savings, got %q", t)
	}
	return nil
}
