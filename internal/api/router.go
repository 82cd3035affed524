package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/wlcham/notes-server/internal/api/handler"
	"github.com/wlcham/notes-server/internal/api/middleware"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// Deps carries everything the router wires into handlers and middleware.
type Deps struct {
	AuthService       ports.AuthService
	NoteService       ports.NoteService
	CollectionService ports.CollectionService
	UserService       ports.UserService
	Health            *handler.HealthHandler

	JWTSecret        string
	AllowOrigins     []string
	AnonymousLimiter middleware.Limiter
	UserLimiter      middleware.Limiter

	Log       zerolog.Logger
	AccessLog zerolog.Logger
	// Registry receives the HTTP request metrics. Defaults to the global
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	allowOrigins := d.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  allowOrigins,
		ExposeHeaders: []string{echo.HeaderAuthorization, "Link"},
	}))
	e.Use(middleware.RequestLogger(d.AccessLog))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "notes",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	noteHandler := handler.NewNoteHandler(d.NoteService)
	collectionHandler := handler.NewCollectionHandler(d.CollectionService)
	userHandler := handler.NewUserHandler(d.UserService)

	requireAuth := middleware.Auth(d.JWTSecret)
	validID := middleware.ValidateObjectID("id")

	// --- Auth routes (per-IP budget) ---
	auth := e.Group("/auth")
	if d.AnonymousLimiter != nil {
		auth.Use(middleware.RateLimit(d.AnonymousLimiter, "anonymous", middleware.ByIP, d.Log))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Authenticated routes (per-user budget) ---
	protected := []echo.MiddlewareFunc{requireAuth}
	if d.UserLimiter != nil {
		protected = append(protected, middleware.RateLimit(d.UserLimiter, "authenticated", middleware.ByIdentity, d.Log))
	}

	notes := e.Group("/notes", protected...)
	notes.GET("", noteHandler.List, middleware.Paginate())
	notes.POST("", noteHandler.Create)
	notes.PUT("", noteHandler.Assign)
	notes.GET("/:id", noteHandler.Get, validID)
	notes.PUT("/:id", noteHandler.Update, validID)
	notes.DELETE("/:id", noteHandler.Delete, validID)

	collections := e.Group("/collections", protected...)
	collections.GET("", collectionHandler.List)
	collections.POST("", collectionHandler.Create)
	collections.GET("/relatedNotes", collectionHandler.RelatedNotes)
	collections.GET("/:id", collectionHandler.Get, validID)
	collections.PUT("/:id", collectionHandler.Update, validID)
	collections.DELETE("/:id", collectionHandler.Delete, validID)

	users := e.Group("/users", protected...)
	users.GET("", userHandler.List, middleware.RequireAdmin("Only admins can view all users."))
	users.GET("/:id", userHandler.Get, validID)
	users.PUT("/:id", userHandler.Update, validID)
	users.DELETE("/:id", userHandler.Delete, validID)

	// --- Operational endpoints (no auth required) ---
	if d.Health != nil {
		e.GET("/health", d.Health.Liveness)
		e.GET("/health/ready", d.Health.Readiness)
	}
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
