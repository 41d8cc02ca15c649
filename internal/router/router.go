// Package router assembles the gin engine: middleware, services, handlers
// and routes.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"ibooks/internal/config"
	_ "ibooks/internal/docs" // registers the swagger spec
	"ibooks/internal/handlers"
	"ibooks/internal/metrics"
	"ibooks/internal/middleware"
	"ibooks/internal/services"
	"ibooks/internal/validator"
)

// Deps carries what the router needs to build its services.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	// Metrics is optional; when nil, /metrics is not mounted and ledger
	// operations are not observed.
	Metrics *metrics.Metrics
}

// New builds the HTTP engine.
func New(deps Deps) *gin.Engine {
	validator.Register()

	cfg := deps.Config
	db := deps.DB

	var recorder services.LedgerRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	userService := services.NewUserService(db)
	accountService := services.NewBankAccountService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	transactionService := services.NewTransactionService(db, recorder)
	auditService := services.NewAuditService(db)
	statsService := services.NewStatsService(db)

	tokens := middleware.NewTokenManager(cfg)
	cookies := middleware.NewCookieSettings(cfg)

	authHandler := handlers.NewAuthHandler(userService, tokens, cookies)
	userHandler := handlers.NewUserHandler(userService)
	accountHandler := handlers.NewBankAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, tagService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	statsHandler := handlers.NewStatsHandler(statsService)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors(cfg.CORSOrigins))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Public routes
	auth := router.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens, userService, cookies))

	protected.GET("/auth/me", authHandler.Me)

	accounts := protected.Group("/config/bank-accounts")
	accounts.GET("", accountHandler.ListBankAccounts)
	accounts.POST("", accountHandler.CreateBankAccount)
	accounts.GET("/:id", accountHandler.GetBankAccount)
	accounts.PATCH("/:id", accountHandler.UpdateBankAccount)
	accounts.DELETE("/:id", accountHandler.DeleteBankAccount)

	categories := protected.Group("/config/categories")
	categories.GET("/tree", categoryHandler.GetTree)
	categories.POST("", categoryHandler.CreateCategory)
	categories.PATCH("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.PATCH("/:id/move", categoryHandler.MoveCategory)
	categories.GET("/:id/tags", categoryHandler.ListTags)
	categories.POST("/:id/tags", categoryHandler.CreateTag)
	categories.DELETE("/:id/tags/:tagId", categoryHandler.DeleteTag)

	ledger := protected.Group("/ledger")
	ledger.GET("/transactions", transactionHandler.ListTransactions)
	ledger.POST("/transactions", transactionHandler.CreateTransaction)
	ledger.GET("/transactions/:id", transactionHandler.GetTransaction)
	ledger.PATCH("/transactions/:id", transactionHandler.UpdateTransaction)
	ledger.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)
	ledger.POST("/transactions/:id/refund", transactionHandler.CreateRefund)
	ledger.POST("/transfers", transactionHandler.CreateTransfer)

	stats := protected.Group("/stats")
	stats.GET("/year-category", statsHandler.YearCategory)
	stats.GET("/month-category", statsHandler.MonthCategory)
	stats.GET("/monthly-range", statsHandler.MonthlyRange)
	stats.GET("/yoy-monthly", statsHandler.YoYMonthly)

	// Admin routes
	users := protected.Group("/config/users", middleware.RequireAdmin())
	users.GET("", userHandler.ListUsers)
	users.POST("", userHandler.CreateUser)
	users.PATCH("/:id", userHandler.UpdateUser)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.GET("/transaction-audit-logs", auditHandler.ListAuditLogs)

	return router
}

// cors echoes allowed origins with credentials so the auth cookie works
// from the web client. A "*" entry answers any origin with a literal "*"
// and no credentials, so cookies are never sent cross-site.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := allowed[origin]
			if ok || wildcard {
				h := c.Writer.Header()
				if ok && origin != "*" {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				} else {
					h.Set("Access-Control-Allow-Origin", "*")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				h.Add("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
