package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/radiology-api/internal/handler"
	appointmenth "github.com/jwalitptl/radiology-api/internal/handler/appointment"
	authh "github.com/jwalitptl/radiology-api/internal/handler/auth"
	doctorh "github.com/jwalitptl/radiology-api/internal/handler/doctor"
	historyh "github.com/jwalitptl/radiology-api/internal/handler/history"
	patienth "github.com/jwalitptl/radiology-api/internal/handler/patient"
	scanh "github.com/jwalitptl/radiology-api/internal/handler/scan"
	scancategoryh "github.com/jwalitptl/radiology-api/internal/handler/scancategory"
	stockh "github.com/jwalitptl/radiology-api/internal/handler/stock"
	userh "github.com/jwalitptl/radiology-api/internal/handler/user"
	"github.com/jwalitptl/radiology-api/internal/middleware"
	"github.com/jwalitptl/radiology-api/internal/notifier"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	Timeout    time.Duration
	CORSConfig middleware.CORSConfig
}

type Handlers struct {
	Health       *handler.Health
	Auth         *authh.Handler
	User         *userh.Handler
	Doctor       *doctorh.Handler
	Patient      *patienth.Handler
	Appointment  *appointmenth.Handler
	History      *historyh.Handler
	ScanCategory *scancategoryh.Handler
	Scan         *scanh.Handler
	Stock        *stockh.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	hub      *notifier.Hub
	gatherer prometheus.Gatherer
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	handlers Handlers,
	hub *notifier.Hub,
	gatherer prometheus.Gatherer,
	cfg Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	registerValidations()
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.CORS(cfg.CORSConfig),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.Timeout}),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		hub:      hub,
		gatherer: gatherer,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.handlers.Health.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")

	r.setupAuthRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", r.handlers.Auth.Login)
		auth.POST("/refresh", r.handlers.Auth.Refresh)
		auth.POST("/forgot-password", r.handlers.Auth.ForgotPassword)
		auth.POST("/reset-password", r.handlers.Auth.ResetPassword)
	}
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/logout", r.handlers.Auth.Logout)
		auth.POST("/change-password", r.handlers.Auth.ChangePassword)
	}

	rg.GET("/ws", r.serveWS)

	users := rg.Group("/users")
	{
		users.GET("/capabilities", r.require(privilege.ModuleUsers, privilege.OpView), r.handlers.User.Capabilities)
		users.POST("", r.require(privilege.ModuleUsers, privilege.OpCreate), r.handlers.User.Create)
		users.GET("", r.require(privilege.ModuleUsers, privilege.OpView), r.handlers.User.List)
		users.GET("/:id", r.require(privilege.ModuleUsers, privilege.OpView), r.handlers.User.Get)
		users.PUT("/:id", r.require(privilege.ModuleUsers, privilege.OpUpdate), r.handlers.User.Update)
		users.DELETE("/:id", r.require(privilege.ModuleUsers, privilege.OpDelete), r.handlers.User.Delete)
		users.POST("/:id/privileges", r.require(privilege.ModuleUsers, privilege.OpUpdate), r.handlers.User.GrantPrivileges)
		users.DELETE("/:id/privileges", r.require(privilege.ModuleUsers, privilege.OpUpdate), r.handlers.User.RevokePrivileges)
	}

	doctors := rg.Group("/doctors")
	{
		doctors.POST("", r.require(privilege.ModuleDoctors, privilege.OpCreate), r.handlers.Doctor.Create)
		doctors.GET("", r.require(privilege.ModuleDoctors, privilege.OpView), r.handlers.Doctor.List)
		doctors.GET("/top-referrers", r.require(privilege.ModuleDoctors, privilege.OpView), r.handlers.Doctor.TopReferrers)
		doctors.GET("/:id", r.require(privilege.ModuleDoctors, privilege.OpView), r.handlers.Doctor.Get)
		doctors.PUT("/:id", r.require(privilege.ModuleDoctors, privilege.OpUpdate), r.handlers.Doctor.Update)
		doctors.DELETE("/:id", r.require(privilege.ModuleDoctors, privilege.OpDelete), r.handlers.Doctor.Delete)
		doctors.GET("/:id/schedule", r.require(privilege.ModuleAppointments, privilege.OpView), r.handlers.Appointment.Schedule)
	}

	patients := rg.Group("/patients")
	{
		patients.POST("", r.require(privilege.ModulePatients, privilege.OpCreate), r.handlers.Patient.Create)
		patients.GET("", r.require(privilege.ModulePatients, privilege.OpView), r.handlers.Patient.List)
		patients.GET("/:id", r.require(privilege.ModulePatients, privilege.OpView), r.handlers.Patient.Get)
		patients.PUT("/:id", r.require(privilege.ModulePatients, privilege.OpUpdate), r.handlers.Patient.Update)
		patients.DELETE("/:id", r.require(privilege.ModulePatients, privilege.OpDelete), r.handlers.Patient.Delete)
	}

	appointments := rg.Group("/appointments")
	{
		appointments.POST("", r.require(privilege.ModuleAppointments, privilege.OpCreate), r.handlers.Appointment.Create)
		appointments.GET("", r.require(privilege.ModuleAppointments, privilege.OpView), r.handlers.Appointment.List)
		appointments.GET("/:id", r.require(privilege.ModuleAppointments, privilege.OpView), r.handlers.Appointment.Get)
		appointments.POST("/:id/transition", r.require(privilege.ModuleAppointments, privilege.OpUpdate), r.handlers.Appointment.Transition)
		appointments.DELETE("/:id", r.require(privilege.ModuleAppointments, privilege.OpDelete), r.handlers.Appointment.Delete)
	}

	history := rg.Group("/patient-history")
	{
		history.GET("", r.require(privilege.ModulePatientHistory, privilege.OpView), r.handlers.History.List)
		history.GET("/:id", r.require(privilege.ModulePatientHistory, privilege.OpView), r.handlers.History.Get)
		history.PATCH("/:id", r.require(privilege.ModulePatientHistory, privilege.OpUpdate), r.handlers.History.Amend)
		history.DELETE("/:id", r.require(privilege.ModulePatientHistory, privilege.OpDelete), r.handlers.History.Delete)
	}

	categories := rg.Group("/scan-categories")
	{
		categories.POST("", r.require(privilege.ModuleScanCategories, privilege.OpCreate), r.handlers.ScanCategory.Create)
		categories.GET("", r.require(privilege.ModuleScanCategories, privilege.OpView), r.handlers.ScanCategory.List)
		categories.GET("/:id", r.require(privilege.ModuleScanCategories, privilege.OpView), r.handlers.ScanCategory.Get)
		categories.PUT("/:id", r.require(privilege.ModuleScanCategories, privilege.OpUpdate), r.handlers.ScanCategory.Update)
		categories.DELETE("/:id", r.require(privilege.ModuleScanCategories, privilege.OpDelete), r.handlers.ScanCategory.Delete)
	}

	scans := rg.Group("/scans")
	{
		scans.POST("", r.require(privilege.ModuleScans, privilege.OpCreate), r.handlers.Scan.Create)
		scans.GET("", r.require(privilege.ModuleScans, privilege.OpView), r.handlers.Scan.List)
		scans.GET("/:id", r.require(privilege.ModuleScans, privilege.OpView), r.handlers.Scan.Get)
		scans.GET("/:id/availability", r.require(privilege.ModuleScans, privilege.OpView), r.handlers.Scan.Availability)
		scans.PUT("/:id", r.require(privilege.ModuleScans, privilege.OpUpdate), r.handlers.Scan.Update)
		scans.DELETE("/:id", r.require(privilege.ModuleScans, privilege.OpDelete), r.handlers.Scan.Delete)
	}

	stock := rg.Group("/stock")
	{
		stock.POST("", r.require(privilege.ModuleStock, privilege.OpCreate), r.handlers.Stock.Create)
		stock.GET("", r.require(privilege.ModuleStock, privilege.OpView), r.handlers.Stock.List)
		stock.GET("/low", r.require(privilege.ModuleStock, privilege.OpView), r.handlers.Stock.ListLow)
		stock.POST("/sweep", r.require(privilege.ModuleStock, privilege.OpUpdate), r.handlers.Stock.Sweep)
		stock.GET("/:id", r.require(privilege.ModuleStock, privilege.OpView), r.handlers.Stock.Get)
		stock.PUT("/:id", r.require(privilege.ModuleStock, privilege.OpUpdate), r.handlers.Stock.Update)
		stock.POST("/:id/adjust", r.require(privilege.ModuleStock, privilege.OpUpdate), r.handlers.Stock.Adjust)
		stock.DELETE("/:id", r.require(privilege.ModuleStock, privilege.OpDelete), r.handlers.Stock.Delete)
	}
}

func (r *Router) require(module privilege.Module, op privilege.Operation) gin.HandlerFunc {
	return r.auth.RequirePrivilege(module, op)
}

func (r *Router) serveWS(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}
	r.hub.ServeWS(c, user.ID)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
