package budget

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CategoryAmount 是报表聚合用的最小分类视图
type CategoryAmount struct {
	Type   string
	Amount decimal.Decimal
}

// SplitTotals 按类型分别汇总预算分类金额，返回 (Spent 合计, Savings 合计)
func SplitTotals(categories []CategoryAmount) (spent, savings decimal.Decimal) {
	for _, cat := range categories {
		switch cat.Type {
		case "Spent":
			spent = spent.Add(cat.Amount)
		case "Savings":
			savings = savings.Add(cat.Amount)
		}
	}
	return spent, savings
}

// Percentage 计算 part 占收入的百分比，保留两位小数；收入不为正时返回 0
func Percentage(part, income decimal.Decimal) decimal.Decimal {
	if income.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero
	}
	return part.Div(income).Mul(hundred).Round(2)
}

// PerDayLimit 由月度总预算反推每日限额
func PerDayLimit(totalDailyAllocation decimal.Decimal, daysInMonth int) decimal.Decimal {
	if daysInMonth <= 0 {
		return decimal.Zero
	}
	return totalDailyAllocation.Div(decimal.NewFromInt(int64(daysInMonth)))
}

// StoredAggregatesUsable 判断月记录里缓存的派生值是否可信：
// 已存在预算分类但缓存的合计仍全为 0，说明上游的重算没有跑过，
// 这时报表应当退回用原始分类行重新计算。
func StoredAggregatesUsable(totalBudgeted, dailyAllocation decimal.Decimal, haveCategories bool) bool {
	if !haveCategories {
		return true
	}
	return !(totalBudgeted.IsZero() && dailyAllocation.IsZero())
}
