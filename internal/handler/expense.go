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

// ExpenseHandler 负责日支出递推相关接口
type ExpenseHandler struct {
	DB *gorm.DB
}

func NewExpenseHandler(db *gorm.DB) *ExpenseHandler {
	return &ExpenseHandler{DB: db}
}

// expenseResp 在记录本身之外附带支出指标
type expenseResp struct {
	models.DailyExpense
	Indicator budget.Indicator `json:"indicator"`
}

func toExpenseResp(e models.DailyExpense) expenseResp {
	return expenseResp{
		DailyExpense: e,
		Indicator:    budget.Classify(e.AmountSpent, e.AllocatedBudget),
	}
}

// placeholderResp 合成未记账日：没有结转，剩余即当日预算
func placeholderResp(m *models.Month, date string) expenseResp {
	values := budget.PlaceholderValues(m.DailyAllocation)
	return toExpenseResp(models.DailyExpense{
		ID:                budget.VirtualID(date),
		UserID:            m.UserID,
		MonthID:           m.ID,
		Date:              date,
		AmountSpent:       decimal.Zero,
		AllocatedBudget:   values.AllocatedBudget,
		CumulativeSavings: values.CumulativeSavings,
		CumulativeBudget:  values.CumulativeBudget,
		Remaining:         values.Remaining,
	})
}

type recordExpenseReq struct {
	MonthID     string          `json:"month_id" binding:"required"`
	Date        string          `json:"date" binding:"required"`
	AmountSpent decimal.Decimal `json:"amount_spent"`
	Notes       *string         `json:"notes"`
}

// RecordExpense 记录某一天的支出。
// 当天已有记录走更新路径：只动 amount_spent/notes/remaining，
// remaining 用存储的 cumulative_budget 减出来，不重推链条，然后单跳触碰后一天。
// 没有记录走插入路径：结转前一天的 remaining（没有就是 0）。
func (h *ExpenseHandler) RecordExpense(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req recordExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateDate(req.Date); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "日期格式错误，应为 YYYY-MM-DD")
		return
	}
	if err := util.ValidateAmount(req.AmountSpent); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	month, err := findOwnedMonth(h.DB, user.ID, req.MonthID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "月份不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	// 当天是否已有记录
	var existing models.DailyExpense
	err = h.DB.Where("user_id = ? AND date = ?", user.ID, req.Date).First(&existing).Error
	switch err {
	case nil:
		if err := h.updateExpense(&existing, req.AmountSpent, req.Notes); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}
		util.Created(c, util.Response{"expense": toExpenseResp(existing)})
	case gorm.ErrRecordNotFound:
		expense, err := h.insertExpense(month, req.Date, req.AmountSpent, req.Notes)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}
		util.Created(c, util.Response{"expense": toExpenseResp(*expense)})
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
	}
}

// insertExpense 插入路径：allocated_budget 取当月 daily_allocation 的快照，
// cumulative_savings 取前一天的 remaining
func (h *ExpenseHandler) insertExpense(m *models.Month, date string, amountSpent decimal.Decimal, notes *string) (*models.DailyExpense, error) {
	prevDate, err := budget.PrevDate(date)
	if err != nil {
		return nil, err
	}

	carried := decimal.Zero
	var prev models.DailyExpense
	err = h.DB.Where("user_id = ? AND date = ?", m.UserID, prevDate).First(&prev).Error
	if err == nil {
		carried = prev.Remaining
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	values := budget.Step(m.DailyAllocation, carried, amountSpent)
	expense := models.DailyExpense{
		UserID:            m.UserID,
		MonthID:           m.ID,
		Date:              date,
		AmountSpent:       amountSpent,
		AllocatedBudget:   values.AllocatedBudget,
		CumulativeSavings: values.CumulativeSavings,
		CumulativeBudget:  values.CumulativeBudget,
		Remaining:         values.Remaining,
	}
	if notes != nil {
		expense.Notes = *notes
	}
	if err := h.DB.Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// updateExpense 更新路径：信任存储的 cumulative_budget，改完单跳触碰后一天
func (h *ExpenseHandler) updateExpense(e *models.DailyExpense, amountSpent decimal.Decimal, notes *string) error {
	e.AmountSpent = amountSpent
	if notes != nil {
		e.Notes = *notes
	}
	e.Remaining = budget.Remaining(e.CumulativeBudget, amountSpent)
	if err := h.DB.Save(e).Error; err != nil {
		return err
	}
	return touchNextDay(h.DB, e.UserID, e.Date)
}

type updateExpenseReq struct {
	AmountSpent decimal.Decimal `json:"amount_spent"`
	Notes       *string         `json:"notes"`
}

// UpdateExpense 修改一条支出记录。
// 虚拟 ID（unsaved-YYYY-MM-DD）表示这天还没入库，转为按内嵌日期插入。
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := budget.ParseExpenseID(c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req updateExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateAmount(req.AmountSpent); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}

	if id.Virtual {
		// 占位日第一次写入：用日期找到所属月份后走插入路径
		month, err := h.findMonthByDate(user.ID, id.Date)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				util.Error(c, http.StatusNotFound, util.CodeNotFound, "该日期所在月份还没有收入记录")
			} else {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
			}
			return
		}
		expense, err := h.insertExpense(month, id.Date, req.AmountSpent, req.Notes)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}
		util.Created(c, util.Response{"expense": toExpenseResp(*expense)})
		return
	}

	var expense models.DailyExpense
	if err := h.DB.Where("id = ? AND user_id = ?", id.Raw, user.ID).First(&expense).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "支出记录不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if err := h.updateExpense(&expense, req.AmountSpent, req.Notes); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"expense": toExpenseResp(expense)})
}

// DeleteExpense 删除一条支出记录，然后单跳触碰后一天
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := budget.ParseExpenseID(c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}
	if id.Virtual {
		// 占位日本来就没有入库，无可删除
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "该日期还没有支出记录")
		return
	}

	var expense models.DailyExpense
	if err := h.DB.Where("id = ? AND user_id = ?", id.Raw, user.ID).First(&expense).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "支出记录不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if err := h.DB.Delete(&expense).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}

	if err := touchNextDay(h.DB, user.ID, expense.Date); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算后一天失败")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// ListMonthExpenses 返回某个月份每一天的支出记录，
// 没入库的日期用虚拟 ID 合成占位记录
func (h *ExpenseHandler) ListMonthExpenses(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	month, err := findOwnedMonth(h.DB, user.ID, c.Param("monthId"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "月份不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var expenses []models.DailyExpense
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Order("date").
		Find(&expenses).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	byDate := make(map[string]models.DailyExpense, len(expenses))
	for _, e := range expenses {
		byDate[e.Date] = e
	}

	dates := budget.MonthDates(month.Month, month.Year)
	items := make([]expenseResp, 0, len(dates))
	for _, date := range dates {
		if e, ok := byDate[date]; ok {
			items = append(items, toExpenseResp(e))
		} else {
			items = append(items, placeholderResp(month, date))
		}
	}

	util.Success(c, util.Response{
		"expenses": items,
	})
}

// GetByDate 查询某一天的支出记录
func (h *ExpenseHandler) GetByDate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	date := c.Param("date")
	if err := util.ValidateDate(date); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	var expense models.DailyExpense
	if err := h.DB.Where("user_id = ? AND date = ?", user.ID, date).First(&expense).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "这一天还没有支出记录")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	util.Success(c, util.Response{
		"expense": toExpenseResp(expense),
	})
}

type recomputeChainReq struct {
	MonthID string `json:"month_id" binding:"required"`
	From    string `json:"from" binding:"required"`
}

// RecomputeChain 从指定日期起到月底，按日期升序逐条重推链式字段。
// 单跳触碰只能修复紧邻的后一天，编辑历史日期后链条会在更远处失联，
// 这个接口就是显式的整链修复入口。
func (h *ExpenseHandler) RecomputeChain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req recomputeChainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateDate(req.From); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	month, err := findOwnedMonth(h.DB, user.ID, req.MonthID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "月份不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var expenses []models.DailyExpense
	if err := h.DB.Where("month_id = ? AND user_id = ? AND date >= ?", month.ID, user.ID, req.From).
		Order("date").
		Find(&expenses).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	updated := 0
	for i := range expenses {
		if err := recomputeExpense(h.DB, &expenses[i]); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算失败")
			return
		}
		updated++
	}

	util.Success(c, util.Response{
		"updated": updated,
	})
}

// findMonthByDate 用日期里的年月定位当前用户的月份记录
func (h *ExpenseHandler) findMonthByDate(userID, date string) (*models.Month, error) {
	t, err := budget.ParseDate(date)
	if err != nil {
		return nil, err
	}

	var m models.Month
	if err := h.DB.Where("user_id = ? AND month = ? AND year = ?", userID, int(t.Month()), t.Year()).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
