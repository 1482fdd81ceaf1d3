package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/authtrail/internal/agent"
	"github.com/BradenHooton/authtrail/internal/auth"
	"github.com/BradenHooton/authtrail/internal/background"
	"github.com/BradenHooton/authtrail/internal/config"
	"github.com/BradenHooton/authtrail/internal/database"
	"github.com/BradenHooton/authtrail/internal/events"
	"github.com/BradenHooton/authtrail/internal/geo"
	"github.com/BradenHooton/authtrail/internal/handlers"
	middlewareCustom "github.com/BradenHooton/authtrail/internal/middleware"
	"github.com/BradenHooton/authtrail/internal/repositories"
	"github.com/BradenHooton/authtrail/internal/routes"
	"github.com/BradenHooton/authtrail/internal/services"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(context.Background(), &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	loginRepo := repositories.NewLoginRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Geolocation
	locator, closeLocator := buildLocator(cfg.Geo, logger)
	defer closeLocator()

	// Event delivery: services emit onto the bus, listeners run asynchronously
	bus := events.NewBus(logger)
	auditService := services.NewAuditService(auditRepo, logger)
	listeners := []events.Sink{auditService}

	if cfg.Email.NotifyNewDevice {
		notifier, err := services.NewDeviceNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, userRepo, logger)
		if err != nil {
			logger.Error("failed to initialize device notifier", slog.Any("error", err))
			os.Exit(1)
		}
		listeners = append(listeners, notifier)
	}

	var kafkaSink *events.KafkaSink
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaSink, err = events.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopicPrefix, logger)
		if err != nil {
			logger.Error("failed to initialize kafka sink", slog.Any("error", err))
			os.Exit(1)
		}
		listeners = append(listeners, kafkaSink)
	}

	if err := bus.Forward(events.NewFanout(listeners...)); err != nil {
		logger.Error("failed to subscribe event listeners", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	matcher, err := services.NewDeviceMatcher(cfg.Devices.MatchingAttributes)
	if err != nil {
		logger.Error("invalid device matching attributes", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("device matching configured",
		slog.Any("attributes", matcher.Attributes()),
		slog.Int("login_throttle_minutes", cfg.Devices.LoginThrottleMinutes),
	)

	deviceService := services.NewDeviceService(deviceRepo, matcher, bus, auditService, logger)
	loginRecorder := services.NewLoginRecorder(loginRepo, locator, services.NewThrottlePolicy(cfg.Devices.LoginThrottleMinutes), bus, logger)
	authEventService := services.NewAuthEventService(deviceService, loginRecorder, userRepo, agent.NewParser(), bus, cfg.Devices.LoginColumn, logger)
	historyService := services.NewHistoryService(deviceRepo, loginRepo, logger)
	userService := services.NewUserService(userRepo, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Events:  handlers.NewAuthEventHandler(authEventService, ipConfig, cfg.Server.FingerprintHeader, logger),
		Devices: handlers.NewDeviceHandler(deviceService, historyService),
		History: handlers.NewHistoryHandler(historyService),
		Users:   handlers.NewUserHandler(userService),
		Audit:   handlers.NewAuditHandler(auditService),
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.ServiceJWTSecret)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(loginRepo, auditRepo, cfg.Cleanup.LoginRetention, logger, cfg.Cleanup.Interval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, h, tokenManager, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.RateLimitPerMinute,
		IPConfig:          ipConfig,
	}, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"database":    "up",
			"connections": db.Stats().TotalConns(),
		})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Drain in-flight listeners before closing their outputs
	bus.Wait()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Error("failed to close kafka writer", slog.Any("error", err))
		}
	}

	logger.Info("server stopped gracefully")
}

// newLogger builds the JSON logger at the configured level, defaulting to info
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// buildLocator returns the MaxMind locator, wrapped in the Redis cache when
// configured. Without a city database, geolocation is disabled.
func buildLocator(cfg config.GeoConfig, logger *slog.Logger) (geo.Locator, func()) {
	if cfg.CityDBPath == "" {
		logger.Info("GEOIP_CITY_DB not set, ip geolocation disabled")
		return geo.NoopLocator{}, func() {}
	}

	maxmind, err := geo.NewMaxMindLocator(cfg.CityDBPath, cfg.ASNDBPath)
	if err != nil {
		logger.Warn("failed to open geoip database, ip geolocation disabled", slog.Any("error", err))
		return geo.NoopLocator{}, func() {}
	}

	if cfg.RedisAddr == "" {
		return maxmind, maxmind.Close
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := geo.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, geolocation cache disabled", slog.Any("error", err))
		return maxmind, maxmind.Close
	}

	return geo.NewCachedLocator(maxmind, client, cfg.CacheTTL, logger), func() {
		_ = client.Close()
		maxmind.Close()
	}
}
