package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 是全系统统一的日期格式
const DateLayout = "2006-01-02"

// ChainValues 是一条日支出记录的全部派生字段
type ChainValues struct {
	AllocatedBudget   decimal.Decimal
	CumulativeSavings decimal.Decimal
	CumulativeBudget  decimal.Decimal
	Remaining         decimal.Decimal
}

// Step 执行一天的递推：
// cumulativeBudget = allocatedBudget + 前一天结转的 carried，
// remaining = cumulativeBudget - amountSpent。
// 插入新记录时 allocatedBudget 取当月的 daily_allocation，
// 重算已有记录时取该记录存储的 allocated_budget（创建时的快照，永不重推）。
func Step(allocatedBudget, carried, amountSpent decimal.Decimal) ChainValues {
	cumulativeBudget := allocatedBudget.Add(carried)
	return ChainValues{
		AllocatedBudget:   allocatedBudget,
		CumulativeSavings: carried,
		CumulativeBudget:  cumulativeBudget,
		Remaining:         cumulativeBudget.Sub(amountSpent),
	}
}

// Remaining 用存储的 cumulativeBudget 重算剩余额度（更新路径，不重推链条）
func Remaining(cumulativeBudget, amountSpent decimal.Decimal) decimal.Decimal {
	return cumulativeBudget.Sub(amountSpent)
}

// PlaceholderValues 合成未记账日的派生值：没有结转，剩余即当日预算
func PlaceholderValues(dailyAllocation decimal.Decimal) ChainValues {
	return ChainValues{
		AllocatedBudget:   dailyAllocation,
		CumulativeSavings: decimal.Zero,
		CumulativeBudget:  dailyAllocation,
		Remaining:         dailyAllocation,
	}
}

// ParseDate 校验并规范化 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// PrevDate 返回前一天的日期
func PrevDate(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format(DateLayout), nil
}

// NextDate 返回后一天的日期
func NextDate(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, 1).Format(DateLayout), nil
}

// MonthDates 按升序返回某年某月的全部日期
func MonthDates(month, year int) []string {
	days := DaysInMonth(month, year)
	dates := make([]string, 0, days)
	for d := 1; d <= days; d++ {
		dates = append(dates, time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC).Format(DateLayout))
	}
	return dates
}
