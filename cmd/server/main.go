package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/config"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/handlers"
	"github.com/vartikaresort/funpark-backend/internal/metrics"
	"github.com/vartikaresort/funpark-backend/internal/middleware"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
	"github.com/vartikaresort/funpark-backend/internal/storage"
	"github.com/vartikaresort/funpark-backend/migrations"
	"github.com/vartikaresort/funpark-backend/pkg/jwt"
	"github.com/vartikaresort/funpark-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Vartika Funpark backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(db, migrations.Files, logger)
		if err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		logger.WithField("applied", applied).Info("Database schema up to date")
	}

	store, err := storage.NewDiskStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatalf("Failed to prepare upload directory: %v", err)
	}

	// Repositories
	userRepository := database.NewUserRepository(db)
	resetTokenRepository := database.NewResetTokenRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	paymentRepository := database.NewPaymentRepository(db)
	membershipRepository := database.NewMembershipRepository(db)
	contactRepository := database.NewContactRepository(db)

	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	otpService := services.NewOTPService(db, time.Duration(cfg.OTP.ExpiryMinutes)*time.Minute, cfg.OTP.MaxAttempts)
	otpThrottle := services.NewOTPThrottle(db, services.RateLimitConfig{
		PerEmail: services.Limit{Max: cfg.OTP.RateLimit, Window: time.Duration(cfg.OTP.RateWindowMinutes) * time.Minute},
		PerIP:    services.Limit{Max: cfg.OTP.RateLimit * 3, Window: time.Hour},
	})
	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)

	var sender mailer.Sender
	devMail := cfg.Mail.Mode != "production"
	if devMail {
		sender = mailer.NewDevSender(logger)
		logger.Info("Mail in development mode (OTP codes are logged and returned in responses)")
	} else {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
		})
		logger.Infof("Mail sender: %s via %s:%d", sender.GetName(), cfg.Mail.Host, cfg.Mail.Port)
	}

	authService := services.NewAuthService(
		userRepository,
		resetTokenRepository,
		otpService,
		otpThrottle,
		auditService,
		sender,
		jwtService,
		services.AuthServiceConfig{
			BcryptCost:    cfg.Security.BcryptCost,
			ResetTokenTTL: time.Duration(cfg.OTP.ResetTokenMinutes) * time.Minute,
			ExposeOTP:     devMail,
		},
		logger,
	)
	bookingService := services.NewBookingService(
		bookingRepository,
		paymentRepository,
		userRepository,
		store,
		auditService,
		models.NewPriceTable(cfg.Pricing.Room, cfg.Pricing.Table, cfg.Pricing.Ticket),
		cfg.Upload.MaxScreenshotBytes,
		logger,
	)
	membershipService := services.NewMembershipService(
		membershipRepository,
		store,
		models.NewMembershipPlans(cfg.Membership.Monthly, cfg.Membership.Quarterly, cfg.Membership.Yearly, cfg.Membership.Lifetime),
		cfg.Upload.MaxScreenshotBytes,
		logger,
	)
	contactService := services.NewContactService(contactRepository)

	cronService := services.NewCronService(otpService, otpThrottle, auditService, resetTokenRepository, bookingService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Services initialized")

	authHandler := handlers.NewAuthHandler(authService)
	bookingHandler := handlers.NewBookingHandler(bookingService, cfg.Upload.MaxScreenshotBytes)
	membershipHandler := handlers.NewMembershipHandler(membershipService, cfg.Upload.MaxScreenshotBytes)
	contactHandler := handlers.NewContactHandler(contactService)

	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxScreenshotBytes + 1<<20

	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", metrics.Handler())

	authenticated := middleware.AuthMiddleware(jwtService)
	adminOnly := []gin.HandlerFunc{authenticated, middleware.RequireAdmin(), middleware.RequireActiveAccount(userRepository)}

	api := router.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/forgot-password", authHandler.ForgotPassword)
		api.POST("/verify-otp", authHandler.VerifyOTP)
		api.POST("/reset-password", authHandler.ResetPassword)
		api.GET("/membership/plans", membershipHandler.Plans)

		user := api.Group("", authenticated)
		{
			user.GET("/user", authHandler.GetUser)
			user.PUT("/update", authHandler.UpdateProfile)
			user.POST("/request-password-change-otp", authHandler.RequestPasswordChangeOTP)
			user.PUT("/change-password", authHandler.ChangePassword)
			user.POST("/membership/purchase", membershipHandler.Purchase)
			user.GET("/membership/mine", membershipHandler.MyMemberships)
		}
	}

	book := router.Group("/bookApi", authenticated)
	{
		book.POST("/bookings", bookingHandler.CreateBooking)
		book.POST("/verify-payment", bookingHandler.VerifyPayment)
		book.GET("/my-bookings", bookingHandler.MyBookings)
	}

	bookAdmin := router.Group("/bookApi", adminOnly...)
	{
		bookAdmin.GET("/bookings", bookingHandler.ListBookings)
		bookAdmin.PUT("/bookings/:id", bookingHandler.UpdateBooking)
	}

	router.Group("/status", adminOnly...).GET("/dashboard-stats", bookingHandler.DashboardStats)

	router.POST("/contactApi/contacts", contactHandler.Submit)
	contactAdmin := router.Group("/contactApi", adminOnly...)
	{
		contactAdmin.GET("/getcontacts", contactHandler.List)
		contactAdmin.DELETE("/deletecontact/:id", contactHandler.Delete)
		contactAdmin.GET("/unseen", contactHandler.UnseenCount)
		contactAdmin.PUT("/mark-seen", contactHandler.MarkAllSeen)
	}

	// Payment screenshots are only visible to admins
	router.Group("", adminOnly...).Static("/uploads", cfg.Upload.Dir)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["role"] = userCtx.Role.String()
		}

		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
