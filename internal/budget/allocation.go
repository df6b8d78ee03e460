package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// 储蓄目标固定为收入的 25%
var savingGoalRatio = decimal.New(25, -2)

// DaysInMonth 返回指定年月的日历天数
func DaysInMonth(month, year int) int {
	// 下个月的第 0 天即本月最后一天
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DailyAllocation 计算每日预算：(收入 - 已规划预算) / 当月天数。
// 超额规划的月份结果为负数，这里故意不做截断。
func DailyAllocation(income, totalBudgeted decimal.Decimal, daysInMonth int) decimal.Decimal {
	if daysInMonth <= 0 {
		return decimal.Zero
	}
	return income.Sub(totalBudgeted).Div(decimal.NewFromInt(int64(daysInMonth)))
}

// SavingGoal 返回收入的 25% 作为储蓄目标
func SavingGoal(income decimal.Decimal) decimal.Decimal {
	return income.Mul(savingGoalRatio)
}
