package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dgctransports/booking-backend/internal/config"
	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/handlers"
	"github.com/dgctransports/booking-backend/internal/middleware"
	"github.com/dgctransports/booking-backend/internal/services"
	"github.com/dgctransports/booking-backend/pkg/jwt"
	"github.com/dgctransports/booking-backend/pkg/qr"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting DGC Transports Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	pg, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()
	db := pg.DB
	logger.Info("Database connection established")

	// Repositories
	catalogRepo := database.NewCatalogRepository(db)
	templateRepo := database.NewTripTemplateRepository(db)
	instanceRepo := database.NewTripInstanceRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	draftRepo := database.NewDraftBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	userRepo := database.NewUserRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	qrWriter, err := qr.NewWriter(cfg.Booking.QRDirectory)
	if err != nil {
		logger.Fatalf("Failed to prepare QR directory: %v", err)
	}

	paystackService := services.NewPaystackService(&cfg.Payment, logger)
	if !paystackService.IsConfigured() {
		logger.Warn("Payment gateway not configured, paid bookings will fail")
	}

	inventoryService := services.NewSeatInventoryService(bookingRepo, draftRepo, catalogRepo, logger)
	creditService := services.NewCreditService(userRepo, cfg.Referral.Enabled, logger)
	mailer := services.NewLogMailer(logger)
	searchService := services.NewTripSearchService(templateRepo, catalogRepo, logger)
	authService := services.NewAuthService(db, userRepo, jwtService, creditService, cfg.Security.BcryptCost, logger)

	bookingService := services.NewBookingService(
		db,
		templateRepo,
		instanceRepo,
		bookingRepo,
		draftRepo,
		paymentRepo,
		inventoryService,
		creditService,
		paystackService,
		mailer,
		qrWriter,
		cfg.Booking,
		logger,
	)

	// Maintenance jobs: nightly instance pre-creation, minutely hold sweep
	generatorService := services.NewInstanceGeneratorService(templateRepo, instanceRepo, logger)
	sweeperService := services.NewDraftExpirationService(draftRepo, logger)
	cronService := services.NewCronService(generatorService, sweeperService, cfg.Booking.PrecreateDays, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	logger.Info("Services initialized")

	// Handlers
	tripHandler := handlers.NewTripHandler(searchService, inventoryService, db, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(bookingService, paystackService, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)
	accountHandler := handlers.NewAccountHandler(userRepo, bookingRepo, logger)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(pg))

	v1 := router.Group("/api/v1")
	{
		// Public catalog and search
		v1.GET("/cities", tripHandler.GetCities)
		v1.GET("/trips/search", tripHandler.SearchTrips)
		v1.GET("/trips/:templateID/seats", tripHandler.GetSeatMap)

		// Booking flow: guests allowed, signed-in users get drafts linked
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.OptionalAuthMiddleware(jwtService))
		{
			bookings.POST("/reserve", bookingHandler.Reserve)
			bookings.GET("/draft/:token", bookingHandler.GetDraft)
			bookings.POST("/draft/:token/passengers", bookingHandler.AttachPassengers)
			bookings.POST("/draft/:token/pay", bookingHandler.Pay)
			bookings.GET("/:pnr", bookingHandler.Lookup)
			bookings.GET("/:pnr/qr", bookingHandler.TicketQR)
		}
		v1.POST("/bookings/:pnr/cancel", middleware.AuthMiddleware(jwtService), bookingHandler.Cancel)

		// Gateway callback and webhook
		v1.GET("/payments/verify", paymentHandler.Verify)
		v1.POST("/payments/webhook", paymentHandler.Webhook)

		// Accounts
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.AuthMiddleware(jwtService), authHandler.Me)
		}

		account := v1.Group("/account")
		account.Use(middleware.AuthMiddleware(jwtService))
		{
			account.GET("/bookings", accountHandler.GetBookings)
			account.GET("/credits", accountHandler.GetCredits)
			account.GET("/referrals", accountHandler.GetReferrals)
		}
	}

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.WithFields(fields).Error("Request failed")
		case c.Writer.Status() >= 400:
			logger.WithFields(fields).Warn("Request rejected")
		default:
			logger.WithFields(fields).Info("Request completed")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *database.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	}
}
