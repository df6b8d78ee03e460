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

// FinanceHandler 提供收入 + 预算分类的组合读写接口
type FinanceHandler struct {
	DB *gorm.DB
}

func NewFinanceHandler(db *gorm.DB) *FinanceHandler {
	return &FinanceHandler{DB: db}
}

// GetFinance 一次返回某年某月的收入记录（含储蓄目标）和全部预算分类及合计
func (h *FinanceHandler) GetFinance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	monthNum, err := strconv.Atoi(c.Param("month"))
	if err != nil || util.ValidateMonth(monthNum) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "月份必须在 1 到 12 之间")
		return
	}
	yearNum, err := strconv.Atoi(c.Param("year"))
	if err != nil || util.ValidateYear(yearNum) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "年份必须在 2000 到 2100 之间")
		return
	}

	var month models.Month
	if err := h.DB.Where("user_id = ? AND month = ? AND year = ?", user.ID, monthNum, yearNum).
		First(&month).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "该月份还没有收入记录")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var categories []models.BudgetCategory
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Order("name").
		Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	amounts := make([]budget.CategoryAmount, 0, len(categories))
	for _, cat := range categories {
		amounts = append(amounts, budget.CategoryAmount{Type: cat.Type, Amount: cat.Amount})
	}
	spent, savings := budget.SplitTotals(amounts)

	util.Success(c, util.Response{
		"month": gin.H{
			"record":      month,
			"saving_goal": budget.SavingGoal(month.Income),
		},
		"budgets": gin.H{
			"categories": categories,
			"totals": gin.H{
				"spent":   spent,
				"savings": savings,
				"total":   spent.Add(savings),
			},
		},
	})
}

type financeIncomeReq struct {
	Month  int             `json:"month"`
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

type financeBudgetReq struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

type postFinanceReq struct {
	Income  financeIncomeReq   `json:"income" binding:"required"`
	Budgets []financeBudgetReq `json:"budgets"`
}

// PostFinance 在一次请求里完成收入 upsert 和预算分类批量创建
func (h *FinanceHandler) PostFinance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req postFinanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateMonth(req.Income.Month); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "月份必须在 1 到 12 之间")
		return
	}
	if err := util.ValidateYear(req.Income.Year); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "年份必须在 2000 到 2100 之间")
		return
	}
	if err := util.ValidateAmount(req.Income.Amount); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效的收入金额")
		return
	}
	for _, b := range req.Budgets {
		if err := util.ValidateCategoryName(b.Name); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请填写分类名称")
			return
		}
		if err := util.ValidateAmount(b.Amount); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
			return
		}
		if err := util.ValidateCategoryType(b.Type); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "分类类型只能是 Spent 或 Savings")
			return
		}
	}

	month, err := upsertIncome(h.DB, user.ID, req.Income.Month, req.Income.Year, req.Income.Amount)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	categories := make([]models.BudgetCategory, 0, len(req.Budgets))
	if len(req.Budgets) > 0 {
		for _, b := range req.Budgets {
			categories = append(categories, models.BudgetCategory{
				UserID:  user.ID,
				MonthID: month.ID,
				Name:    b.Name,
				Amount:  b.Amount,
				Type:    b.Type,
			})
		}
		if err := h.DB.Create(&categories).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}

		// 新增分类改变了 total_budgeted，重算一次派生字段
		if err := recomputeMonthDerived(h.DB, month); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算预算失败")
			return
		}
	}

	util.Created(c, util.Response{
		"month":   month,
		"budgets": categories,
	})
}
