package handler

import (
	"net/http"

	"github.com/marirajayt508/moneymap-api/internal/budget"
	"github.com/marirajayt508/moneymap-api/internal/models"
	"github.com/marirajayt508/moneymap-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryHandler 负责预算分类相关接口
type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

type createCategoryReq struct {
	MonthID string          `json:"month_id" binding:"required"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Type    string          `json:"type"`
}

// CreateCategory 在某个月份下新建预算分类，并重算月记录的派生字段
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateCategoryName(req.Name); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请填写分类名称")
		return
	}
	if err := util.ValidateAmount(req.Amount); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
		return
	}
	if err := util.ValidateCategoryType(req.Type); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "分类类型只能是 Spent 或 Savings")
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

	category := models.BudgetCategory{
		UserID:  user.ID,
		MonthID: month.ID,
		Name:    req.Name,
		Amount:  req.Amount,
		Type:    req.Type,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	// 分类变化后立刻重算 total_budgeted / daily_allocation
	if err := recomputeMonthDerived(h.DB, month); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算预算失败")
		return
	}

	util.Created(c, util.Response{
		"category": category,
	})
}

// ListCategories 返回某个月份的全部预算分类
func (h *CategoryHandler) ListCategories(c *gin.Context) {
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

	var categories []models.BudgetCategory
	if err := h.DB.Where("month_id = ? AND user_id = ?", month.ID, user.ID).
		Order("name").
		Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"categories": categories,
	})
}

type updateCategoryReq struct {
	Name   *string          `json:"name"`
	Amount *decimal.Decimal `json:"amount"`
	Type   *string          `json:"type"`
}

// UpdateCategory 部分更新一条预算分类（只能改自己的），随后重算月派生字段
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var req updateCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var category models.BudgetCategory
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "分类不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	// 只更新传了的字段
	if req.Name != nil {
		if err := util.ValidateCategoryName(*req.Name); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请填写分类名称")
			return
		}
		category.Name = *req.Name
	}
	if req.Amount != nil {
		if err := util.ValidateAmount(*req.Amount); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效金额")
			return
		}
		category.Amount = *req.Amount
	}
	if req.Type != nil {
		if err := util.ValidateCategoryType(*req.Type); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "分类类型只能是 Spent 或 Savings")
			return
		}
		category.Type = *req.Type
	}

	if err := h.DB.Save(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	month, err := findOwnedMonth(h.DB, user.ID, category.MonthID)
	if err == nil {
		err = recomputeMonthDerived(h.DB, month)
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算预算失败")
		return
	}

	util.Success(c, util.Response{
		"category": category,
	})
}

// DeleteCategory 删除一条预算分类（只能删自己的），随后重算月派生字段
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return
	}

	var category models.BudgetCategory
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "分类不存在或无权访问")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if err := h.DB.Delete(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}

	month, err := findOwnedMonth(h.DB, user.ID, category.MonthID)
	if err == nil {
		err = recomputeMonthDerived(h.DB, month)
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "重算预算失败")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// GetSummary 返回某个月份的预算汇总：收入、合计和按类型的分类合计
func (h *CategoryHandler) GetSummary(c *gin.Context) {
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

	util.Success(c, util.Response{
		"income":            month.Income,
		"totalBudgeted":     month.TotalBudgeted,
		"balanceAmount":     month.BalanceAmount,
		"dailyAllocation":   month.DailyAllocation,
		"daysInMonth":       month.DaysInMonth,
		"spentCategories":   spent,
		"savingsCategories": savings,
	})
}
