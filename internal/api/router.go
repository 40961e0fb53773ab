package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/handlers"
	"github.com/stocktrail/stocktrail/internal/middleware"
	"github.com/stocktrail/stocktrail/internal/permissions"
	"github.com/stocktrail/stocktrail/internal/services"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB           *gorm.DB
	JWT          *auth.JWTService
	Checker      *permissions.Checker
	Auth         *services.AuthService
	Users        *services.UserService
	Categories   *services.CategoryService
	Locations    *services.LocationService
	Items        *services.ItemService
	Transactions *services.TransactionService
	Tasks        *services.TaskService
	Audit        *services.AuditService
	Dashboard    *services.DashboardService

	LoginRateLimit  int
	LoginRateWindow time.Duration
	EnableMetrics   bool
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeaders(),
		middleware.Metrics(),
	)
	engine.NoRoute(middleware.NotFoundHandler())

	health := handlers.NewHealthHandler(deps.DB)
	engine.GET("/health", health.Live)
	engine.GET("/healthz", health.Live)
	engine.GET("/readyz", health.Ready)

	if deps.EnableMetrics {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Users)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Audit)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories, deps.Audit)
	locationHandler := handlers.NewLocationHandler(deps.Locations, deps.Audit)
	itemHandler := handlers.NewItemHandler(deps.Items, deps.Audit)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions)
	taskHandler := handlers.NewTaskHandler(deps.Tasks, deps.Audit)
	auditHandler := handlers.NewAuditHandler(deps.Audit)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)

	loginLimiter := middleware.NewRateLimiter(deps.LoginRateLimit, deps.LoginRateWindow)

	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", middleware.RequireAuth(deps.JWT), middleware.AuditActor(), authHandler.Logout)
		authGroup.GET("/me", middleware.RequireAuth(deps.JWT), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(deps.JWT), middleware.AuditActor())

	perm := func(id string) gin.HandlerFunc {
		return middleware.RequirePermission(deps.Checker, id)
	}

	items := protected.Group("/items")
	{
		items.GET("", perm("inventory.view"), itemHandler.List)
		items.GET("/low-stock", perm("inventory.view"), itemHandler.LowStock)
		items.GET("/:id", perm("inventory.view"), itemHandler.Get)
		items.POST("", perm("inventory.create"), itemHandler.Create)
		items.PUT("/:id", perm("inventory.edit"), itemHandler.Update)
		items.DELETE("/:id", perm("inventory.delete"), itemHandler.Delete)
	}

	categories := protected.Group("/categories")
	{
		categories.GET("", perm("catalog.view"), categoryHandler.List)
		categories.GET("/:id", perm("catalog.view"), categoryHandler.Get)
		categories.POST("", perm("catalog.manage"), categoryHandler.Create)
		categories.PUT("/:id", perm("catalog.manage"), categoryHandler.Update)
		categories.DELETE("/:id", perm("catalog.manage"), categoryHandler.Delete)
	}

	locations := protected.Group("/locations")
	{
		locations.GET("", perm("catalog.view"), locationHandler.List)
		locations.GET("/:id", perm("catalog.view"), locationHandler.Get)
		locations.POST("", perm("catalog.manage"), locationHandler.Create)
		locations.PUT("/:id", perm("catalog.manage"), locationHandler.Update)
		locations.DELETE("/:id", perm("catalog.manage"), locationHandler.Delete)
	}

	transactions := protected.Group("/transactions")
	{
		transactions.GET("", perm("transaction.view"), transactionHandler.List)
		transactions.GET("/:id", perm("transaction.view"), transactionHandler.Get)
		transactions.POST("", perm("transaction.create"), transactionHandler.Create)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", perm("task.view"), taskHandler.List)
		tasks.GET("/:id", perm("task.view"), taskHandler.Get)
		tasks.POST("", perm("task.manage"), taskHandler.Create)
		tasks.PUT("/:id", perm("task.manage"), taskHandler.Update)
		tasks.DELETE("/:id", perm("task.manage"), taskHandler.Delete)
		tasks.GET("/:id/notes", perm("task.view"), taskHandler.ListNotes)
		tasks.POST("/:id/notes", perm("task.manage"), taskHandler.AddNote)
	}

	users := protected.Group("/users")
	{
		users.GET("", perm("user.view"), userHandler.List)
		users.GET("/:id", perm("user.view"), userHandler.Get)
		users.POST("", perm("user.manage"), userHandler.Create)
		users.PUT("/:id", perm("user.manage"), userHandler.Update)
		users.DELETE("/:id", perm("user.manage"), userHandler.Delete)
	}

	auditLogs := protected.Group("/audit-logs")
	{
		auditLogs.GET("", perm("audit.view"), auditHandler.List)
		auditLogs.GET("/recent", perm("audit.view"), auditHandler.Recent)
		auditLogs.GET("/stats", perm("audit.view"), auditHandler.Stats)
		auditLogs.GET("/export", perm("audit.export"), auditHandler.Export)
		auditLogs.GET("/users/:id", perm("audit.view"), auditHandler.UserActivity)
	}

	protected.GET("/dashboard", perm("dashboard.view"), dashboardHandler.Summary)

	return engine
}
