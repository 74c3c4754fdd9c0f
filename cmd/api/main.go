package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/radiology-api/internal/config"
	"github.com/jwalitptl/radiology-api/internal/email"
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
	"github.com/jwalitptl/radiology-api/internal/repository/postgres"
	"github.com/jwalitptl/radiology-api/internal/router"
	appointmentsvc "github.com/jwalitptl/radiology-api/internal/service/appointment"
	authsvc "github.com/jwalitptl/radiology-api/internal/service/auth"
	"github.com/jwalitptl/radiology-api/internal/service/coordinator"
	doctorsvc "github.com/jwalitptl/radiology-api/internal/service/doctor"
	historysvc "github.com/jwalitptl/radiology-api/internal/service/history"
	patientsvc "github.com/jwalitptl/radiology-api/internal/service/patient"
	scansvc "github.com/jwalitptl/radiology-api/internal/service/scan"
	scancategorysvc "github.com/jwalitptl/radiology-api/internal/service/scancategory"
	stocksvc "github.com/jwalitptl/radiology-api/internal/service/stock"
	usersvc "github.com/jwalitptl/radiology-api/internal/service/user"
	pkgauth "github.com/jwalitptl/radiology-api/pkg/auth"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/logger"
	redisbroker "github.com/jwalitptl/radiology-api/pkg/messaging/redis"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := newLogger(cfg.Logging)
	zl := lg.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		lg.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		lg.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New("radiology", registry)
	clk := clock.New()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	doctorRepo := postgres.NewDoctorRepository(base)
	patientRepo := postgres.NewPatientRepository(base)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	historyRepo := postgres.NewPatientHistoryRepository(base)
	categoryRepo := postgres.NewScanCategoryRepository(base)
	scanRepo := postgres.NewScanRepository(base)
	stockRepo := postgres.NewStockRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)
	tokenRepo := postgres.NewTokenRepository(base)

	authorizer := privilege.NewAuthorizer(privilege.NewRegistry())
	tokens := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryMinutes) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	}, clk)
	emailSvc := email.NewService(cfg.Email)

	authService := authsvc.NewService(userRepo, tokenRepo, tokens, emailSvc, clk, zl)
	userService := usersvc.NewService(userRepo, authorizer, emailSvc, clk, zl)
	doctorService := doctorsvc.NewService(doctorRepo, clk)
	patientService := patientsvc.NewService(patientRepo, doctorRepo, clk)
	appointmentService := appointmentsvc.NewService(appointmentRepo, patientRepo, doctorRepo, scanRepo, categoryRepo, clk, m, zl)
	historyService := historysvc.NewService(historyRepo, clk)
	categoryService := scancategorysvc.NewService(categoryRepo, clk)
	scanService := scansvc.NewService(scanRepo, categoryRepo, stockRepo, clk)
	stockService := stocksvc.NewService(stockRepo, outboxRepo, clk, zl)

	coordService := coordinator.NewService(userRepo, stockRepo, notifier.NewBrokerNotifier(broker), m, zl)
	hub := notifier.NewHub(broker, zl)

	authMW := middleware.NewAuthMiddleware(authService, authorizer)
	handlers := router.Handlers{
		Health:       handler.NewHealth(db),
		Auth:         authh.NewHandler(authService),
		User:         userh.NewHandler(userService),
		Doctor:       doctorh.NewHandler(doctorService),
		Patient:      patienth.NewHandler(patientService),
		Appointment:  appointmenth.NewHandler(appointmentService),
		History:      historyh.NewHandler(historyService),
		ScanCategory: scancategoryh.NewHandler(categoryService),
		Scan:         scanh.NewHandler(scanService),
		Stock:        stockh.NewHandler(stockService, coordService),
	}

	r := router.NewRouter(authMW, handlers, hub, registry, router.Config{
		RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:  cfg.RateLimit.Burst,
		Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig: middleware.DefaultCORSConfig(),
	})
	r.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error(err, "notification hub stopped")
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		lg.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	lg.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error(err, "graceful shutdown failed")
	}
}

func newLogger(cfg config.LoggingConfig) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Pretty,
	})
}
