package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/marirajayt508/moneymap-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler 把月度支出趋势导出为 CSV / XLSX
type ExportHandler struct {
	DB      *gorm.DB
	reports *ReportHandler
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{
		DB:      db,
		reports: NewReportHandler(db),
	}
}

var exportHeaders = []string{"日期", "支出", "当日预算", "累计结转", "累计预算", "剩余", "状态", "备注"}

// Export 导出某年某月的趋势数据，?format=csv（默认）或 xlsx
func (h *ExportHandler) Export(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	monthNum, yearNum, ok := parsePeriod(c)
	if !ok {
		return
	}
	month, ok := h.reports.findMonthByPeriod(c, user.ID, monthNum, yearNum)
	if !ok {
		return
	}

	rows, err := h.reports.loadTrend(user.ID, month.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportXLSX(c, monthNum, yearNum, rows)
	case "csv":
		h.exportCSV(c, monthNum, yearNum, rows)
	default:
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "format 只支持 csv 或 xlsx")
	}
}

func (h *ExportHandler) exportCSV(c *gin.Context, monthNum, yearNum int, rows []trendRow) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"expenses_%04d%02d_%s.csv\"",
		yearNum, monthNum, time.Now().Format("20060102")))

	// UTF-8 BOM（让 Excel 正确识别中文）
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range rows {
		writer.Write([]string{
			r.Date,
			r.AmountSpent.String(),
			r.AllocatedBudget.String(),
			r.CumulativeSavings.String(),
			r.CumulativeBudget.String(),
			r.Remaining.String(),
			string(r.Indicator),
			r.Notes,
		})
	}
}

func (h *ExportHandler) exportXLSX(c *gin.Context, monthNum, yearNum int, rows []trendRow) {
	f := excelize.NewFile()
	sheetName := "支出趋势"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "创建工作表失败")
		return
	}
	f.SetActiveSheet(index)

	// 设置表头
	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	// 写入数据
	for idx, r := range rows {
		row := idx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.Date)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.AmountSpent.String())
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.AllocatedBudget.String())
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.CumulativeSavings.String())
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.CumulativeBudget.String())
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Remaining.String())
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), string(r.Indicator))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Notes)
	}

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "F", 14)
	f.SetColWidth(sheetName, "G", "G", 10)
	f.SetColWidth(sheetName, "H", "H", 30)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"expenses_%04d%02d_%s.xlsx\"",
		yearNum, monthNum, time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导出失败")
	}
}
