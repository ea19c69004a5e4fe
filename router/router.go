package router

import (
	"log/slog"
	"strings"
	"time"

	"expensetracker/api"
	"expensetracker/config"
	"expensetracker/docs"
	"expensetracker/middleware"
	"expensetracker/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies 路由依赖的可选组件，均可为 nil
type Dependencies struct {
	Cache    *service.ReportCache
	Notifier service.Notifier
	Logger   *slog.Logger
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(CORSMiddleware())

	// Swagger 文档，host 跟随监听端口
	if strings.HasPrefix(cfg.Server.Port, ":") {
		docs.SwaggerInfo.Host = "localhost" + cfg.Server.Port
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := api.NewAuthHandler(cfg)
	systemHandler := api.NewSystemHandler()
	expenseHandler := api.NewExpenseHandler(cfg, deps.Cache, deps.Notifier)
	budgetHandler := api.NewBudgetHandler(cfg, deps.Cache)
	reportHandler := api.NewReportHandler(cfg, deps.Cache)
	exportHandler := api.NewExportHandler(cfg)

	loginLimit := middleware.LoginRateLimit(
		cfg.RateLimit.LoginAttempts,
		time.Duration(cfg.RateLimit.LoginWindowSeconds)*time.Second,
	)

	apiGroup := r.Group("/api")
	{
		// 无需登录
		apiGroup.POST("/signup", loginLimit, authHandler.Signup)
		apiGroup.POST("/login", loginLimit, authHandler.Login)
		apiGroup.GET("/health", systemHandler.Health)
		apiGroup.GET("/categories", systemHandler.Categories)

		// 需要 JWT 认证的路由
		authorized := apiGroup.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.GET("/me", authHandler.Me)

			expenses := authorized.Group("/expenses")
			{
				expenses.POST("", expenseHandler.Create)
				expenses.GET("/list", expenseHandler.List)
				expenses.POST("/import", expenseHandler.Import)
				expenses.GET("/:id", expenseHandler.Get)
				expenses.PUT("/:id", expenseHandler.Update)
				expenses.DELETE("/:id", expenseHandler.Delete)
			}

			budget := authorized.Group("/budget")
			{
				budget.GET("", budgetHandler.Get)
				budget.PUT("", budgetHandler.Update)
				budget.GET("/status", budgetHandler.Status)
				budget.GET("/derive", budgetHandler.Derive)
			}

			reports := authorized.Group("/reports")
			{
				reports.GET("", reportHandler.Reports)
				reports.GET("/categories", reportHandler.Categories)
				reports.GET("/stats", reportHandler.Stats)
			}

			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/json", exportHandler.ExportJSON)
				export.GET("/statement", exportHandler.ExportStatement)
			}
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition", "Retry-After"},
		MaxAge:          12 * time.Hour,
	})
}
