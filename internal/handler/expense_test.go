package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marirajayt508/moneymap-api/internal/budget"
	"github.com/marirajayt508/moneymap-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试一个独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Month{},
		&models.BudgetCategory{},
		&models.DailyExpense{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// setupTestRouter 绕过 JWT，把用户直接放进 context，路由和生产一致
func setupTestRouter(db *gorm.DB, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("currentUser", user)
	})

	incomeHandler := NewIncomeHandler(db)
	r.POST("/api/income", incomeHandler.UpsertIncome)
	r.GET("/api/income", incomeHandler.ListMonths)
	r.GET("/api/income/:month/:year", incomeHandler.GetIncome)

	categoryHandler := NewCategoryHandler(db)
	r.POST("/api/budget", categoryHandler.CreateCategory)
	r.GET("/api/budget/month/:monthId", categoryHandler.ListCategories)
	r.GET("/api/budget/summary/:monthId", categoryHandler.GetSummary)
	r.PUT("/api/budget/:id", categoryHandler.UpdateCategory)
	r.DELETE("/api/budget/:id", categoryHandler.DeleteCategory)

	financeHandler := NewFinanceHandler(db)
	r.GET("/api/finance/:month/:year", financeHandler.GetFinance)
	r.POST("/api/finance", financeHandler.PostFinance)

	expenseHandler := NewExpenseHandler(db)
	r.POST("/api/expense", expenseHandler.RecordExpense)
	r.POST("/api/expense/recompute", expenseHandler.RecomputeChain)
	r.GET("/api/expense/month/:monthId", expenseHandler.ListMonthExpenses)
	r.GET("/api/expense/date/:date", expenseHandler.GetByDate)
	r.PUT("/api/expense/:id", expenseHandler.UpdateExpense)
	r.DELETE("/api/expense/:id", expenseHandler.DeleteExpense)

	reportHandler := NewReportHandler(db)
	r.GET("/api/report/monthly/:month/:year", reportHandler.Monthly)
	r.GET("/api/report/trend/:month/:year", reportHandler.Trend)
	r.GET("/api/report/savings/:month/:year", reportHandler.Savings)
	r.GET("/api/report/spending/:month/:year", reportHandler.Spending)

	return r
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", DisplayName: username}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return &user
}

// doJSON 发一个 JSON 请求并返回录制的响应
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code int                        `json:"code"`
	Data map[string]json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

// mustMonth 从数据库取某年某月的记录
func mustMonth(t *testing.T, db *gorm.DB, userID string, month, year int) models.Month {
	t.Helper()
	var m models.Month
	if err := db.Where("user_id = ? AND month = ? AND year = ?", userID, month, year).First(&m).Error; err != nil {
		t.Fatalf("load month %d/%d: %v", month, year, err)
	}
	return m
}

// mustExpense 从数据库取某一天的支出记录
func mustExpense(t *testing.T, db *gorm.DB, userID, date string) models.DailyExpense {
	t.Helper()
	var e models.DailyExpense
	if err := db.Where("user_id = ? AND date = ?", userID, date).First(&e).Error; err != nil {
		t.Fatalf("load expense %s: %v", date, err)
	}
	return e
}

// TestUpsertIncome 创建月记录并重算派生字段；重复提交不产生第二条记录
func TestUpsertIncome(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	w := doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/income status = %d, body = %s", w.Code, w.Body.String())
	}

	m := mustMonth(t, db, user.ID, 6, 2025)
	if m.DaysInMonth != 30 {
		t.Errorf("DaysInMonth = %d, want 30", m.DaysInMonth)
	}
	// 还没有预算分类：每日预算 = 3000 / 30
	if !m.DailyAllocation.Equal(decimal.NewFromInt(100)) {
		t.Errorf("DailyAllocation = %s, want 100", m.DailyAllocation)
	}
	if !m.BalanceAmount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("BalanceAmount = %s, want 3000", m.BalanceAmount)
	}

	// 幂等：同样的收入再提交一次
	w = doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	if w.Code != http.StatusCreated {
		t.Fatalf("second POST /api/income status = %d", w.Code)
	}

	var count int64
	db.Model(&models.Month{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("month count = %d, want 1", count)
	}
	m2 := mustMonth(t, db, user.ID, 6, 2025)
	if !m2.DailyAllocation.Equal(m.DailyAllocation) {
		t.Errorf("DailyAllocation changed: %s -> %s", m.DailyAllocation, m2.DailyAllocation)
	}
}

// TestUpsertIncome_Validation 越界参数全部拒绝
func TestUpsertIncome_Validation(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	testCases := []gin.H{
		{"month": 0, "year": 2025, "income": 100},
		{"month": 13, "year": 2025, "income": 100},
		{"month": 6, "year": 1999, "income": 100},
		{"month": 6, "year": 2101, "income": 100},
		{"month": 6, "year": 2025, "income": -1},
	}
	for _, body := range testCases {
		w := doJSON(t, r, "POST", "/api/income", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST /api/income %v status = %d, want 400", body, w.Code)
		}
	}
}

// TestEndToEndRecurrence 完整走一遍链式递推：
// 收入 3000（2025 年 6 月），分类 Spent 500 + Savings 200，
// 第 1 天花 40，第 2 天花 30。
func TestEndToEndRecurrence(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	m := mustMonth(t, db, user.ID, 6, 2025)

	doJSON(t, r, "POST", "/api/budget", gin.H{"month_id": m.ID, "name": "Rent", "amount": 500, "type": "Spent"})
	doJSON(t, r, "POST", "/api/budget", gin.H{"month_id": m.ID, "name": "Emergency", "amount": 200, "type": "Savings"})

	m = mustMonth(t, db, user.ID, 6, 2025)
	if !m.TotalBudgeted.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("TotalBudgeted = %s, want 700", m.TotalBudgeted)
	}
	wantAllocation := decimal.NewFromInt(2300).Div(decimal.NewFromInt(30)) // 76.666...
	if !m.DailyAllocation.Equal(wantAllocation) {
		t.Fatalf("DailyAllocation = %s, want %s", m.DailyAllocation, wantAllocation)
	}

	// 第 1 天：没有前一天，结转 0
	w := doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": "2025-06-01", "amount_spent": 40})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/expense day1 status = %d, body = %s", w.Code, w.Body.String())
	}
	day1 := mustExpense(t, db, user.ID, "2025-06-01")
	if !day1.CumulativeSavings.IsZero() {
		t.Errorf("day1 CumulativeSavings = %s, want 0", day1.CumulativeSavings)
	}
	if !day1.CumulativeBudget.Equal(wantAllocation) {
		t.Errorf("day1 CumulativeBudget = %s, want %s", day1.CumulativeBudget, wantAllocation)
	}
	wantRemaining1 := wantAllocation.Sub(decimal.NewFromInt(40)) // 36.666...
	if !day1.Remaining.Equal(wantRemaining1) {
		t.Errorf("day1 Remaining = %s, want %s", day1.Remaining, wantRemaining1)
	}

	// 第 2 天：结转第 1 天的 remaining
	doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": "2025-06-02", "amount_spent": 30})
	day2 := mustExpense(t, db, user.ID, "2025-06-02")
	if !day2.CumulativeSavings.Equal(day1.Remaining) {
		t.Errorf("day2 CumulativeSavings = %s, want %s", day2.CumulativeSavings, day1.Remaining)
	}
	wantBudget2 := wantAllocation.Add(wantRemaining1) // 113.333...
	if !day2.CumulativeBudget.Equal(wantBudget2) {
		t.Errorf("day2 CumulativeBudget = %s, want %s", day2.CumulativeBudget, wantBudget2)
	}
	wantRemaining2 := wantBudget2.Sub(decimal.NewFromInt(30)) // 83.333...
	if !day2.Remaining.Equal(wantRemaining2) {
		t.Errorf("day2 Remaining = %s, want %s", day2.Remaining, wantRemaining2)
	}

	// 不变量：remaining = cumulative_budget - amount_spent
	if !day2.Remaining.Equal(day2.CumulativeBudget.Sub(day2.AmountSpent)) {
		t.Error("invariant remaining = cumulativeBudget - amountSpent violated")
	}
}

// TestExpenseUpdate_SingleHopTouch 编辑某天只会触碰紧邻的后一天，
// 更远的日期要靠显式的整链重算接口修复
func TestExpenseUpdate_SingleHopTouch(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	m := mustMonth(t, db, user.ID, 6, 2025)

	// 连续三天各花 10
	for _, date := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": date, "amount_spent": 10})
	}
	day3Before := mustExpense(t, db, user.ID, "2025-06-03")

	// 把第 1 天的支出改成 50
	day1 := mustExpense(t, db, user.ID, "2025-06-01")
	w := doJSON(t, r, "PUT", "/api/expense/"+day1.ID, gin.H{"amount_spent": 50})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /api/expense status = %d, body = %s", w.Code, w.Body.String())
	}

	// 第 1 天：用存储的 cumulative_budget 重算 remaining
	day1 = mustExpense(t, db, user.ID, "2025-06-01")
	if !day1.Remaining.Equal(day1.CumulativeBudget.Sub(decimal.NewFromInt(50))) {
		t.Errorf("day1 Remaining = %s, want cumulativeBudget - 50", day1.Remaining)
	}

	// 第 2 天被单跳触碰，结转跟上了
	day2 := mustExpense(t, db, user.ID, "2025-06-02")
	if !day2.CumulativeSavings.Equal(day1.Remaining) {
		t.Errorf("day2 CumulativeSavings = %s, want %s", day2.CumulativeSavings, day1.Remaining)
	}

	// 第 3 天没有被触碰，还是旧值
	day3 := mustExpense(t, db, user.ID, "2025-06-03")
	if !day3.CumulativeSavings.Equal(day3Before.CumulativeSavings) {
		t.Errorf("day3 CumulativeSavings = %s, want untouched %s", day3.CumulativeSavings, day3Before.CumulativeSavings)
	}

	// 显式整链重算后第 3 天也跟上
	w = doJSON(t, r, "POST", "/api/expense/recompute", gin.H{"month_id": m.ID, "from": "2025-06-02"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/expense/recompute status = %d", w.Code)
	}
	day2 = mustExpense(t, db, user.ID, "2025-06-02")
	day3 = mustExpense(t, db, user.ID, "2025-06-03")
	if !day3.CumulativeSavings.Equal(day2.Remaining) {
		t.Errorf("after recompute day3 CumulativeSavings = %s, want %s", day3.CumulativeSavings, day2.Remaining)
	}
}

// TestDeleteExpense_TouchesNextDay 删除某天后，后一天重算时前一天已不存在，结转归零
func TestDeleteExpense_TouchesNextDay(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	m := mustMonth(t, db, user.ID, 6, 2025)

	doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": "2025-06-01", "amount_spent": 10})
	doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": "2025-06-02", "amount_spent": 10})

	day1 := mustExpense(t, db, user.ID, "2025-06-01")
	w := doJSON(t, r, "DELETE", "/api/expense/"+day1.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE /api/expense status = %d", w.Code)
	}

	day2 := mustExpense(t, db, user.ID, "2025-06-02")
	if !day2.CumulativeSavings.IsZero() {
		t.Errorf("day2 CumulativeSavings = %s, want 0 after deleting day1", day2.CumulativeSavings)
	}
	if !day2.Remaining.Equal(day2.CumulativeBudget.Sub(day2.AmountSpent)) {
		t.Error("invariant remaining = cumulativeBudget - amountSpent violated after delete")
	}
}

// TestListMonthExpenses_Placeholders 未记账的日期合成占位记录
func TestListMonthExpenses_Placeholders(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	// 收入 1500，没有分类：每日预算 = 1500 / 30 = 50
	doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 1500})
	m := mustMonth(t, db, user.ID, 6, 2025)
	doJSON(t, r, "POST", "/api/expense", gin.H{"month_id": m.ID, "date": "2025-06-10", "amount_spent": 20})

	w := doJSON(t, r, "GET", "/api/expense/month/"+m.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/expense/month status = %d", w.Code)
	}

	env := decodeEnvelope(t, w)
	var items []struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"`
		AmountSpent decimal.Decimal `json:"amount_spent"`
		Remaining   decimal.Decimal `json:"remaining"`
		Indicator   string          `json:"indicator"`
	}
	if err := json.Unmarshal(env.Data["expenses"], &items); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(items) != 30 {
		t.Fatalf("len(expenses) = %d, want 30", len(items))
	}

	// 6 月 1 日没记账：虚拟 ID + 剩余即当日预算 + good
	first := items[0]
	if first.ID != budget.VirtualID("2025-06-01") {
		t.Errorf("placeholder id = %q, want %q", first.ID, budget.VirtualID("2025-06-01"))
	}
	if !first.AmountSpent.IsZero() {
		t.Errorf("placeholder AmountSpent = %s, want 0", first.AmountSpent)
	}
	if !first.Remaining.Equal(decimal.NewFromInt(50)) {
		t.Errorf("placeholder Remaining = %s, want 50", first.Remaining)
	}
	if first.Indicator != "good" {
		t.Errorf("placeholder Indicator = %q, want good", first.Indicator)
	}

	// 6 月 10 日是已入库记录
	day10 := items[9]
	if day10.Date != "2025-06-10" {
		t.Fatalf("items[9].Date = %q, want 2025-06-10", day10.Date)
	}
	if _, err := budget.ParseExpenseID(day10.ID); err != nil || day10.ID == budget.VirtualID("2025-06-10") {
		t.Errorf("day10 id = %q, want persisted uuid", day10.ID)
	}
	if !day10.AmountSpent.Equal(decimal.NewFromInt(20)) {
		t.Errorf("day10 AmountSpent = %s, want 20", day10.AmountSpent)
	}
}

// TestUpdateExpense_VirtualID 对虚拟 ID 写入等于按内嵌日期插入
func TestUpdateExpense_VirtualID(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	doJSON(t, r, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 1500})

	w := doJSON(t, r, "PUT", "/api/expense/"+budget.VirtualID("2025-06-05"), gin.H{"amount_spent": 30})
	if w.Code != http.StatusCreated {
		t.Fatalf("PUT virtual id status = %d, body = %s", w.Code, w.Body.String())
	}

	e := mustExpense(t, db, user.ID, "2025-06-05")
	if !e.AmountSpent.Equal(decimal.NewFromInt(30)) {
		t.Errorf("AmountSpent = %s, want 30", e.AmountSpent)
	}
	// 每日预算 1500/30 = 50，前一天没有记录
	if !e.AllocatedBudget.Equal(decimal.NewFromInt(50)) {
		t.Errorf("AllocatedBudget = %s, want 50", e.AllocatedBudget)
	}
	if !e.CumulativeSavings.IsZero() {
		t.Errorf("CumulativeSavings = %s, want 0", e.CumulativeSavings)
	}
}

// TestUpdateExpense_InvalidID 非法 ID 直接拒绝
func TestUpdateExpense_InvalidID(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupTestRouter(db, user)

	w := doJSON(t, r, "PUT", "/api/expense/not-an-id", gin.H{"amount_spent": 30})
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT invalid id status = %d, want 400", w.Code)
	}
}

// TestOwnership_Conflated 别人的月份和不存在的月份返回同一个 404
func TestOwnership_Conflated(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	aliceRouter := setupTestRouter(db, alice)
	doJSON(t, aliceRouter, "POST", "/api/income", gin.H{"month": 6, "year": 2025, "income": 3000})
	m := mustMonth(t, db, alice.ID, 6, 2025)

	bobRouter := setupTestRouter(db, bob)
	wForeign := doJSON(t, bobRouter, "GET", "/api/budget/month/"+m.ID, nil)
	wMissing := doJSON(t, bobRouter, "GET", "/api/budget/month/00000000-0000-0000-0000-000000000000", nil)

	if wForeign.Code != http.StatusNotFound || wMissing.Code != http.StatusNotFound {
		t.Fatalf("status = %d / %d, want 404 / 404", wForeign.Code, wMissing.Code)
	}
	if wForeign.Body.String() != wMissing.Body.String() {
		t.Error("foreign and missing month responses differ, existence is leaking")
	}
}
