package router

import (
	"net/http"

	"github.com/marirajayt508/moneymap-api/internal/config"
	"github.com/marirajayt508/moneymap-api/internal/handler"
	"github.com/marirajayt508/moneymap-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures Gin engine and the API route table.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "MoneyMap API is running")
	})

	// ====== API ======
	api := r.Group("/api")

	// 从配置中读取 JWT 密钥和过期时间
	jwtSecret := cfg.JWT.Secret
	// 登录/注册接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	protected.GET("/me", handler.GetMe)

	// 月收入
	incomeHandler := handler.NewIncomeHandler(db)
	protected.POST("/income", incomeHandler.UpsertIncome)
	protected.GET("/income", incomeHandler.ListMonths)
	protected.GET("/income/:month/:year", incomeHandler.GetIncome)

	// 预算分类
	categoryHandler := handler.NewCategoryHandler(db)
	protected.POST("/budget", categoryHandler.CreateCategory)
	protected.GET("/budget/month/:monthId", categoryHandler.ListCategories)
	protected.GET("/budget/summary/:monthId", categoryHandler.GetSummary)
	protected.PUT("/budget/:id", categoryHandler.UpdateCategory)
	protected.DELETE("/budget/:id", categoryHandler.DeleteCategory)

	// 收入 + 预算组合接口
	financeHandler := handler.NewFinanceHandler(db)
	protected.GET("/finance/:month/:year", financeHandler.GetFinance)
	protected.POST("/finance", financeHandler.PostFinance)

	// 日支出（链式递推）
	expenseHandler := handler.NewExpenseHandler(db)
	protected.POST("/expense", expenseHandler.RecordExpense)
	protected.POST("/expense/recompute", expenseHandler.RecomputeChain)
	protected.GET("/expense/month/:monthId", expenseHandler.ListMonthExpenses)
	protected.GET("/expense/date/:date", expenseHandler.GetByDate)
	protected.PUT("/expense/:id", expenseHandler.UpdateExpense)
	protected.DELETE("/expense/:id", expenseHandler.DeleteExpense)

	// 报表
	reportHandler := handler.NewReportHandler(db)
	protected.GET("/report/monthly/:month/:year", reportHandler.Monthly)
	protected.GET("/report/trend/:month/:year", reportHandler.Trend)
	protected.GET("/report/savings/:month/:year", reportHandler.Savings)
	protected.GET("/report/spending/:month/:year", reportHandler.Spending)

	// 导出
	exportHandler := handler.NewExportHandler(db)
	protected.GET("/report/export/:month/:year", exportHandler.Export)

	return r
}
