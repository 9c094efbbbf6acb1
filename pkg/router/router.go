package router

import (
	"net/http"

	"faqdesk/backend/internal/api"
	"faqdesk/backend/internal/ws"
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/di"
	"faqdesk/backend/pkg/errors"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	RateLimiter *middleware.RateLimiter
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.LogError(err, "Invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	// logger first so every request gets an id
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.TracingMiddleware())
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(limitBody(cfg.Security.MaxBodySize))

	opts := middleware.DefaultRateLimiterOptions()
	opts.Limit = rate.Limit(cfg.Security.RateLimit)
	opts.Burst = cfg.Security.RateLimitBurst

	return &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		RateLimiter: middleware.NewRateLimiter(container.Logger, opts),
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	// gin binds middleware at registration, so validation goes first
	r.setupOpenAPI(r.Config.Server.OpenAPISchemaPath)
	r.setupHealthRoutes()

	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, r.Logger)
	limit := r.RateLimiter.Middleware()

	authHandler := api.NewAuthHandler(c.UserService, r.Logger)
	chatHandler := api.NewChatHandler(c.HelpdeskService, r.Logger)
	faqHandler := api.NewFAQHandler(c.FAQService, c.Cache, r.Config.Cache.TTL, c.Metrics, r.Logger)
	escalationHandler := api.NewEscalationHandler(c.HelpdeskService, r.Logger)
	adminHandler := api.NewAdminHandler(c.HelpdeskService, c.Cache, r.Config.Escalation.StaleAfter, r.Logger)
	wsHandler := ws.NewHandler(c.Hub, r.Config.Security.AllowedOrigins)

	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	authRoutes := v1.Group("/auth", limit)
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/guest", authHandler.Guest)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Protected routes (require authentication)
	protected := v1.Group("/", jwtAuth, limit)

	chatRoutes := protected.Group("/chat", middleware.RequirePermission(jwt.PermissionChatSend))
	{
		chatRoutes.POST("/messages", chatHandler.Send)
		chatRoutes.GET("/messages", chatHandler.Messages)
		chatRoutes.POST("/messages/:id/feedback", chatHandler.Feedback)
	}

	faqRead := middleware.RequirePermission(jwt.PermissionFAQRead)
	faqWrite := middleware.RequirePermission(jwt.PermissionFAQWrite)
	faqRoutes := protected.Group("/faqs")
	{
		faqRoutes.POST("/search", faqRead, faqHandler.Search)
		faqRoutes.GET("/popular", faqRead, faqHandler.Popular)
		faqRoutes.GET("", faqRead, faqHandler.List)
		faqRoutes.GET("/:id", faqRead, faqHandler.Get)

		faqRoutes.POST("", faqWrite, faqHandler.Create)
		faqRoutes.PUT("/:id", faqWrite, faqHandler.Update)
		faqRoutes.POST("/:id/toggle", faqWrite, faqHandler.Toggle)
		faqRoutes.DELETE("/:id", faqWrite, faqHandler.Delete)
		faqRoutes.POST("/import", faqWrite, faqHandler.Import)
		faqRoutes.GET("/export", faqWrite, faqHandler.Export)
		faqRoutes.GET("/stats", faqWrite, faqHandler.Stats)
	}

	escalationRoutes := protected.Group("/escalations", middleware.RequirePermission(jwt.PermissionEscalationManage))
	{
		escalationRoutes.GET("", escalationHandler.List)
		escalationRoutes.GET("/pending", escalationHandler.Pending)
		escalationRoutes.GET("/:id", escalationHandler.Get)
		escalationRoutes.POST("/:id/respond", escalationHandler.Respond)
		escalationRoutes.POST("/:id/close", escalationHandler.Close)
	}

	staffRoutes := protected.Group("/admin", middleware.RequireRole(jwt.RoleStaff))
	{
		staffRoutes.GET("/dashboard", adminHandler.Dashboard)
		staffRoutes.GET("/backlog", adminHandler.Backlog)
		staffRoutes.POST("/users/:id/messages", chatHandler.AdminSend)
	}

	adminRoutes := protected.Group("/admin", middleware.RequirePermission(jwt.PermissionUserManage))
	{
		adminRoutes.PUT("/users/:id/role", authHandler.UpdateUserRole)
		adminRoutes.POST("/users/:id/unlock", authHandler.UnlockUser)
		adminRoutes.POST("/staff", authHandler.CreateStaff)
		adminRoutes.GET("/staff", authHandler.ListStaff)
		adminRoutes.GET("/cache", adminHandler.CacheStats)
		adminRoutes.DELETE("/cache", adminHandler.ClearCache)
	}

	// browsers cannot set headers on websocket upgrades; the token may come as ?token=
	r.Engine.GET("/ws", jwtAuth, wsHandler.Serve)
}

// limitBody caps request bodies at n bytes; zero or less disables the cap.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
