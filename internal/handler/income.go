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

// IncomeHandler 负责月收入相关接口
type IncomeHandler struct {
	DB *gorm.DB
}

func NewIncomeHandler(db *gorm.DB) *IncomeHandler {
	return &IncomeHandler{DB: db}
}

type upsertIncomeReq struct {
	Month  int             `json:"month"`
	Year   int             `json:"year"`
	Income decimal.Decimal `json:"income"`
}

// UpsertIncome 创建或更新某年某月的收入（没有该月记录就新建）
func (h *IncomeHandler) UpsertIncome(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req upsertIncomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateMonth(req.Month); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "月份必须在 1 到 12 之间")
		return
	}
	if err := util.ValidateYear(req.Year); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "年份必须在 2000 到 2100 之间")
		return
	}
	if err := util.ValidateAmount(req.Income); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入有效的收入金额")
		return
	}

	month, err := upsertIncome(h.DB, user.ID, req.Month, req.Year, req.Income)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Created(c, util.Response{
		"month": month,
	})
}

// GetIncome 查询某年某月的收入记录；没有记录不是错误场景，返回 404 表示尚未录入
func (h *IncomeHandler) GetIncome(c *gin.Context) {
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

	util.Success(c, util.Response{
		"month":       month,
		"saving_goal": budget.SavingGoal(month.Income),
	})
}

// ListMonths 返回当前用户的全部月份记录，按年月倒序
func (h *IncomeHandler) ListMonths(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var months []models.Month
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("year DESC, month DESC").
		Find(&months).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"months": months,
	})
}
