package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/config"
	"quickride/internal/handler"
	"quickride/internal/handler/api"
	"quickride/internal/middleware"
	"quickride/internal/payment"
	"quickride/internal/pkg/mailer"
	"quickride/internal/repository"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	cfg *config.Config,
	orchestrator *payment.Orchestrator,
	callbackDeduper middleware.CallbackDeduper,
	mail mailer.Service,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Repositories
	repos := &api.Repos{
		User:    repository.NewUserRepository(db),
		Car:     repository.NewCarRepository(db),
		Booking: repository.NewBookingRepository(db),
		Payment: repository.NewPaymentRepository(db),
	}

	// Handlers
	authHandler := api.NewAuthHandler(repos.User, cfg.JWT.Secret, cfg.JWT.Expiry, mail, cfg.SMTP.From, cfg.SMTP.FromName, logger)
	userHandler := api.NewUserHandler(repos.User, logger)
	carHandler := api.NewCarHandler(repos.Car, logger)
	bookingHandler := api.NewBookingHandler(repos.Booking, repos.Car, logger)
	paymentHandler := handler.NewPaymentHandler(orchestrator, repos.Payment, logger)
	callbackHandler := handler.NewCallbackHandler(orchestrator, logger)

	jwtAuth := middleware.JWTAuth(cfg.JWT.Secret)
	adminOnly := middleware.RequireRole("admin", "manager")

	// Auth
	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Cars: catalogue is public, mutations are admin-only.
	carGroup := e.Group("/api/cars")
	carGroup.GET("", carHandler.List)
	carGroup.GET("/:id", carHandler.Get)
	carGroup.POST("", carHandler.Create, jwtAuth, adminOnly)
	carGroup.PUT("/:id", carHandler.Update, jwtAuth, adminOnly)
	carGroup.DELETE("/:id", carHandler.Delete, jwtAuth, adminOnly)

	// Bookings
	bookingGroup := e.Group("/api/bookings", jwtAuth)
	bookingGroup.POST("", bookingHandler.Create)
	bookingGroup.GET("", bookingHandler.List, adminOnly)
	bookingGroup.GET("/:id", bookingHandler.Get)
	bookingGroup.GET("/user/:userId", bookingHandler.ByUser)
	bookingGroup.PUT("/:id", bookingHandler.Update, adminOnly)
	bookingGroup.POST("/:id/cancel", bookingHandler.Cancel)
	bookingGroup.DELETE("/:id", bookingHandler.Delete, adminOnly)

	// Users (admin)
	userGroup := e.Group("/api/users", jwtAuth, adminOnly)
	userGroup.GET("", userHandler.List)
	userGroup.GET("/:id", userHandler.Get)
	userGroup.PUT("/:id", userHandler.Update)
	userGroup.DELETE("/:id", userHandler.Delete)

	// Payments
	paymentGroup := e.Group("/api/payments")
	paymentGroup.POST("/mpesa/initiate/:bookingId", paymentHandler.Initiate, jwtAuth)
	paymentGroup.POST("/mpesa/retry/:bookingId", paymentHandler.Retry, jwtAuth)
	paymentGroup.GET("/mpesa/status/:checkoutRequestId", paymentHandler.Status, jwtAuth)
	paymentGroup.GET("/history/:bookingId", paymentHandler.History, jwtAuth)
	paymentGroup.GET("", paymentHandler.List, jwtAuth, adminOnly)
	paymentGroup.GET("/user/:userId", paymentHandler.ByUser, jwtAuth)

	// Daraja result callback. The provider posts without authentication;
	// duplicates are filtered upstream and the handler always acknowledges.
	paymentGroup.POST("/mpesa/callback", callbackHandler.StkCallback,
		middleware.MpesaCallbackDedup(callbackDeduper))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
