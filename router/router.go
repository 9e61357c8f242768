package router

import (
	"net/http"
	"time"

	"globfam/api"
	"globfam/config"
	_ "globfam/docs"
	"globfam/importer"
	"globfam/logger"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, imp *importer.Importer) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logger.GinLogger())
	r.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	apiGroup := r.Group("/api")

	// 认证相关路由（无需登录）
	authHandler := api.NewAuthHandler(cfg)
	auth := apiGroup.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", middleware.LoginRateLimit(10, 15*time.Minute), authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	// 需要 JWT 认证的路由
	authed := apiGroup.Group("")
	authed.Use(middleware.JWTAuth(), middleware.ActiveAccount())
	{
		// 个人资料对所有角色可写
		authed.GET("/auth/profile", authHandler.GetProfile)
		authed.PUT("/auth/profile", authHandler.UpdateProfile)
		authed.PUT("/auth/password", authHandler.ChangePassword)
	}

	// 组织数据，VIEWER 只读
	authorized := authed.Group("")
	authorized.Use(middleware.RequireWrite())
	{

		orgHandler := api.NewOrganizationHandler()
		org := authorized.Group("/organization")
		{
			org.GET("", orgHandler.Get)
			org.GET("/members", orgHandler.ListMembers)
			org.POST("/members", middleware.RequireRole(models.RoleOwner), orgHandler.AddMember)
		}

		assetHandler := api.NewAssetHandler()
		assets := authorized.Group("/assets")
		{
			assets.GET("", assetHandler.List)
			assets.POST("", assetHandler.Create)
			assets.GET("/:id", assetHandler.Get)
			assets.PUT("/:id", assetHandler.Update)
			assets.DELETE("/:id", assetHandler.Delete)
			assets.POST("/:id/reconcile", assetHandler.Reconcile)
		}

		txHandler := api.NewTransactionHandler()
		transactions := authorized.Group("/transactions")
		{
			transactions.GET("", txHandler.List)
			transactions.POST("", txHandler.Create)
			transactions.GET("/:id", txHandler.Get)
			transactions.PUT("/:id", txHandler.Update)
			transactions.DELETE("/:id", txHandler.Delete)
		}

		goalHandler := api.NewGoalHandler()
		goals := authorized.Group("/goals")
		{
			goals.GET("", goalHandler.List)
			goals.POST("", goalHandler.Create)
			goals.GET("/:id", goalHandler.Get)
			goals.PUT("/:id", goalHandler.Update)
			goals.DELETE("/:id", goalHandler.Delete)
			goals.POST("/:id/contributions", goalHandler.Contribute)
		}

		budgetHandler := api.NewBudgetHandler()
		categories := authorized.Group("/budget-categories")
		{
			categories.GET("", budgetHandler.ListCategories)
			categories.POST("", budgetHandler.CreateCategory)
			categories.PUT("/reorder", budgetHandler.Reorder)
			categories.PUT("/:id", budgetHandler.UpdateCategory)
			categories.DELETE("/:id", budgetHandler.DeleteCategory)
		}
		groups := authorized.Group("/budget-category-groups")
		{
			groups.GET("", budgetHandler.ListGroups)
			groups.POST("", budgetHandler.CreateGroup)
			groups.PUT("/:id", budgetHandler.UpdateGroup)
			groups.DELETE("/:id", budgetHandler.DeleteGroup)
		}
		authorized.GET("/budgets/summary", budgetHandler.Summary)

		dashboardHandler := api.NewDashboardHandler()
		authorized.GET("/dashboard/summary", dashboardHandler.Summary)

		importHandler := api.NewImportHandler(imp, cfg.Server.MaxUploadMB)
		imports := authorized.Group("/imports")
		{
			imports.POST("/preview", importHandler.Preview)
			imports.POST("", importHandler.Create)
			imports.GET("", importHandler.List)
			imports.GET("/:id", importHandler.Get)
		}

		exportHandler := api.NewExportHandler()
		authorized.GET("/export/transactions", exportHandler.ExportTransactions)
	}

	return r
}

// CORSMiddleware 基于 rs/cors 的跨域中间件，预检请求直接返回 204
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "Origin", "X-Requested-With", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
