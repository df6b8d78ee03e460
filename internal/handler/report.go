package handler

import (
	"net/http"
	"strconv"

	"github.com/marirajayt508/moneymap-api/internal/budget"
	"github.com/marirajayt508/moneymap-api/internal/models"
	"github.com/marirajayt508/moneymap-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportHandler 负责只读报表接口
type ReportHandler struct {
	DB *gorm.DB
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{DB: db}
}

// parsePeriod 解析并校验路径里的 :month/:year
func parsePeriod(c *gin.Context) (int, int, bool) {
	monthNum, err := strconv.Atoi(c.Param("month"))
	if err != nil || util.ValidateMonth(monthNum) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "月份必须在 1 到 12 之间")
		return 0, 0, false
	}
	yearNum, err := strconv.Atoi(c.Param("year"))
	if err != nil || util.ValidateYear(yearNum) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "年份必须在 2000 到 2100 之间")
		return 0, 0, false
	}
	return monthNum, yearNum, true
}

// findMonthByPeriod 按年月定位当前用户的月份记录；找不到时写 404
func (h *ReportHandler) findMonthByPeriod(c *gin.Context, userID string, monthNum, yearNum int) (*models.Month, bool) {
	var month models.Month
	if err := h.DB.Where("user_id = ? AND month = ? AND year = ?", userID, monthNum, yearNum).
		First(&month).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "该月份还没有数据")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return nil, false
	}
	return &month, true
}

// Monthly 月度汇总报表。
// 派生值走两级策略：优先用月记录里缓存的 total_budgeted / daily_allocation，
// 缓存看起来没算过（有分类但合计全为 0）就退回用原始分类行重算，不报错。
func (h *ReportHandler) Monthly(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	monthNum, yearNum, ok := parsePeriod(c)
	if !ok {
		return
	}
	month, ok := h.findMonthByPeriod(c, user.ID, monthNum, yearNum)
	if !ok {
		return
	}

	var categories []models.BudgetCategory
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	amounts := make([]budget.CategoryAmount, 0, len(categories))
	for _, cat := range categories {
		amounts = append(amounts, budget.CategoryAmount{Type: cat.Type, Amount: cat.Amount})
	}
	spent, savings := budget.SplitTotals(amounts)

	// 两级策略：缓存可信就用缓存，否则现场重算
	dailyAllocation := month.DailyAllocation
	totalRemaining := month.BalanceAmount
	if !budget.StoredAggregatesUsable(month.TotalBudgeted, month.DailyAllocation, len(categories) > 0) {
		totalBudgeted := spent.Add(savings)
		dailyAllocation = budget.DailyAllocation(month.Income, totalBudgeted, month.DaysInMonth)
		totalRemaining = month.Income.Sub(totalBudgeted)
	}
	totalDailyAllocation := dailyAllocation.Mul(decimal.NewFromInt(int64(month.DaysInMonth)))

	var expenses []models.DailyExpense
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Order("date").
		Find(&expenses).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	// 按日期的支出映射；最后一天的 remaining 就是额外攒下的钱
	dailySpending := make(map[string]decimal.Decimal, len(expenses))
	extraSavings := decimal.Zero
	for _, e := range expenses {
		dailySpending[e.Date] = e.AmountSpent
	}
	if len(expenses) > 0 {
		extraSavings = expenses[len(expenses)-1].Remaining
	}

	util.Success(c, util.Response{
		"month":                monthNum,
		"year":                 yearNum,
		"totalIncome":          month.Income,
		"totalSavings":         savings,
		"totalSpent":           spent,
		"totalDailyAllocation": totalDailyAllocation,
		"totalRemaining":       totalRemaining,
		"extraSavings":         extraSavings,
		"dailySpending":        dailySpending,
		"perdayLimit":          budget.PerDayLimit(totalDailyAllocation, month.DaysInMonth),
		"savingGoal":           budget.SavingGoal(month.Income),
	})
}

// trendRow 月度趋势里的一行
type trendRow struct {
	Date              string           `json:"date"`
	AmountSpent       decimal.Decimal  `json:"amountSpent"`
	AllocatedBudget   decimal.Decimal  `json:"allocatedBudget"`
	CumulativeSavings decimal.Decimal  `json:"cumulativeSavings"`
	CumulativeBudget  decimal.Decimal  `json:"cumulativeBudget"`
	Remaining         decimal.Decimal  `json:"remaining"`
	Notes             string           `json:"notes"`
	Indicator         budget.Indicator `json:"indicator"`
}

// loadTrend 按日期升序载入某月的全部支出行（导出接口也复用）
func (h *ReportHandler) loadTrend(userID, monthID string) ([]trendRow, error) {
	var expenses []models.DailyExpense
	if err := h.DB.Where("month_id = ? AND user_id = ?", monthID, userID).
		Order("date").
		Find(&expenses).Error; err != nil {
		return nil, err
	}

	rows := make([]trendRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, trendRow{
			Date:              e.Date,
			AmountSpent:       e.AmountSpent,
			AllocatedBudget:   e.AllocatedBudget,
			CumulativeSavings: e.CumulativeSavings,
			CumulativeBudget:  e.CumulativeBudget,
			Remaining:         e.Remaining,
			Notes:             e.Notes,
			Indicator:         budget.Classify(e.AmountSpent, e.AllocatedBudget),
		})
	}
	return rows, nil
}

// Trend 返回某月按日期升序的支出趋势
func (h *ReportHandler) Trend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	monthNum, yearNum, ok := parsePeriod(c)
	if !ok {
		return
	}
	month, ok := h.findMonthByPeriod(c, user.ID, monthNum, yearNum)
	if !ok {
		return
	}

	rows, err := h.loadTrend(user.ID, month.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"trend": rows,
	})
}

type plannedCategory struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Savings 储蓄分析：计划储蓄分类 + 最后一天的 remaining 作为额外储蓄
func (h *ReportHandler) Savings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	monthNum, yearNum, ok := parsePeriod(c)
	if !ok {
		return
	}
	month, ok := h.findMonthByPeriod(c, user.ID, monthNum, yearNum)
	if !ok {
		return
	}

	var categories []models.BudgetCategory
	if err := h.DB.Where("month_id = ? AND user_id = ? AND type = ?", month.ID, user.ID, models.CategoryTypeSavings).
		Order("amount DESC").
		Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	planned := make([]plannedCategory, 0, len(categories))
	totalPlanned := decimal.Zero
	for _, cat := range categories {
		planned = append(planned, plannedCategory{Name: cat.Name, Amount: cat.Amount})
		totalPlanned = totalPlanned.Add(cat.Amount)
	}

	// 最后一天的 remaining
	extraSavings := decimal.Zero
	var lastDay models.DailyExpense
	err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Order("date DESC").
		First(&lastDay).Error
	if err == nil {
		extraSavings = lastDay.Remaining
	} else if err != gorm.ErrRecordNotFound {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	totalSavings := totalPlanned.Add(extraSavings)

	util.Success(c, util.Response{
		"month":               monthNum,
		"year":                yearNum,
		"plannedSavings":      planned,
		"totalPlannedSavings": totalPlanned,
		"extraSavings":        extraSavings,
		"totalSavings":        totalSavings,
		"savingsPercentage":   budget.Percentage(totalSavings, month.Income),
	})
}

// Spending 支出分析：计划支出分类 vs 实际日支出合计
func (h *ReportHandler) Spending(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	monthNum, yearNum, ok := parsePeriod(c)
	if !ok {
		return
	}
	month, ok := h.findMonthByPeriod(c, user.ID, monthNum, yearNum)
	if !ok {
		return
	}

	var categories []models.BudgetCategory
	if err := h.DB.Where("month_id = ? AND user_id = ? AND type = ?", month.ID, user.ID, models.CategoryTypeSpent).
		Order("amount DESC").
		Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	planned := make([]plannedCategory, 0, len(categories))
	totalPlanned := decimal.Zero
	for _, cat := range categories {
		planned = append(planned, plannedCategory{Name: cat.Name, Amount: cat.Amount})
		totalPlanned = totalPlanned.Add(cat.Amount)
	}

	var expenses []models.DailyExpense
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Find(&expenses).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	totalActual := decimal.Zero
	for _, e := range expenses {
		totalActual = totalActual.Add(e.AmountSpent)
	}

	util.Success(c, util.Response{
		"month":                monthNum,
		"year":                 yearNum,
		"plannedSpending":      planned,
		"totalPlannedSpending": totalPlanned,
		"totalActualSpending":  totalActual,
		"difference":           totalPlanned.Sub(totalActual),
		"spendingPercentage":   budget.Percentage(totalActual, month.Income),
	})
}
