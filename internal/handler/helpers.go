package handler

import (
	"net/http"

	"github.com/marirajayt508/moneymap-api/internal/budget"
	"github.com/marirajayt508/moneymap-api/internal/models"
	"github.com/marirajayt508/moneymap-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// currentUser 取出 AuthMiddleware 放进 context 的当前用户，
// 取不到时直接写 401 响应
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未登录")
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未登录")
		return nil, false
	}
	return user, true
}

// findOwnedMonth 查找属于指定用户的月份记录。
// 记录不存在和属于别人返回同一个 ErrRecordNotFound，不暴露存在性。
func findOwnedMonth(db *gorm.DB, userID, monthID string) (*models.Month, error) {
	var m models.Month
	if err := db.Where("id = ? AND user_id = ?", monthID, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// recomputeMonthDerived 重算月记录的派生字段，对应原系统里数据库侧的
// calculate_daily_allocation：
//
//	total_budgeted   = 预算分类合计
//	daily_allocation = (income - total_budgeted) / days_in_month（允许为负）
//	balance_amount   = income - total_budgeted
//
// 存储的派生值只是缓存，这里是唯一的写入口。
func recomputeMonthDerived(db *gorm.DB, m *models.Month) error {
	var cats []models.BudgetCategory
	if err := db.Where("month_id = ? AND user_id = ?", m.ID, m.UserID).Find(&cats).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, cat := range cats {
		total = total.Add(cat.Amount)
	}

	m.TotalBudgeted = total
	m.DailyAllocation = budget.DailyAllocation(m.Income, total, m.DaysInMonth)
	m.BalanceAmount = m.Income.Sub(total)
	return db.Save(m).Error
}

// upsertIncome 创建或更新某年某月的收入记录，随后跑一次派生字段重算。
// 同一 (user, month, year) 重复提交相同收入不会产生第二条记录，
// daily_allocation 也保持不变。
func upsertIncome(db *gorm.DB, userID string, month, year int, income decimal.Decimal) (*models.Month, error) {
	var m models.Month
	err := db.Where("user_id = ? AND month = ? AND year = ?", userID, month, year).First(&m).Error
	switch err {
	case nil:
		m.Income = income
		if err := db.Save(&m).Error; err != nil {
			return nil, err
		}
	case gorm.ErrRecordNotFound:
		m = models.Month{
			UserID:          userID,
			Month:           month,
			Year:            year,
			Income:          income,
			DaysInMonth:     budget.DaysInMonth(month, year),
			DailyAllocation: decimal.Zero, // 由下面的重算步骤填充
			TotalBudgeted:   decimal.Zero,
			BalanceAmount:   income,
		}
		if err := db.Create(&m).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := recomputeMonthDerived(db, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// recomputeExpense 重算一条已有支出记录的链式字段：
// 结转额重新读取前一天的 remaining（没有就是 0），
// allocated_budget 保持创建时的快照，绝不重推。
func recomputeExpense(db *gorm.DB, e *models.DailyExpense) error {
	prevDate, err := budget.PrevDate(e.Date)
	if err != nil {
		return err
	}

	carried := decimal.Zero
	var prev models.DailyExpense
	err = db.Where("user_id = ? AND date = ?", e.UserID, prevDate).First(&prev).Error
	if err == nil {
		carried = prev.Remaining
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	values := budget.Step(e.AllocatedBudget, carried, e.AmountSpent)
	e.CumulativeSavings = values.CumulativeSavings
	e.CumulativeBudget = values.CumulativeBudget
	e.Remaining = values.Remaining
	return db.Save(e).Error
}

// touchNextDay 单跳前向传播：只重算 date 后一天的记录，更远的日期不管。
// 需要整链修复时走 RecomputeChain 接口。
func touchNextDay(db *gorm.DB, userID, date string) error {
	nextDate, err := budget.NextDate(date)
	if err != nil {
		return err
	}

	var next models.DailyExpense
	err = db.Where("user_id = ? AND date = ?", userID, nextDate).First(&next).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return recomputeExpense(db, &next)
}
