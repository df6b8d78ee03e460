package budget

import "github.com/shopspring/decimal"

// Indicator 表示某天支出相对当日预算的状态
type Indicator string

const (
	IndicatorGood    Indicator = "good"
	IndicatorAverage Indicator = "average"
	IndicatorReached Indicator = "reached"
)

// good 区间的上界是当日预算的 70%
var goodRatio = decimal.New(7, -1)

// Classify 根据支出和当日预算分类：
// amountSpent <= 70% 预算为 good，<= 100% 为 average，超出为 reached。
// 两个边界都取闭区间。
func Classify(amountSpent, allocatedBudget decimal.Decimal) Indicator {
	switch {
	case amountSpent.Cmp(allocatedBudget.Mul(goodRatio)) <= 0:
		return IndicatorGood
	case amountSpent.Cmp(allocatedBudget) <= 0:
		return IndicatorAverage
	default:
		return IndicatorReached
	}
}
