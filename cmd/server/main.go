package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/majipay/backend/internal/config"
	"github.com/majipay/backend/internal/database"
	"github.com/majipay/backend/internal/handlers"
	"github.com/majipay/backend/internal/ledger"
	"github.com/majipay/backend/internal/middleware"
	"github.com/majipay/backend/internal/routes"
	"github.com/majipay/backend/internal/services/payment/intasend"
	"github.com/majipay/backend/internal/services/sms"
	"github.com/majipay/backend/internal/ussd"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize external clients
	paymentClient := intasend.NewClient(
		cfg.IntaSend.PublicKey,
		cfg.IntaSend.PrivateKey,
		cfg.IntaSend.WebhookURL,
		cfg.IntaSend.TestMode,
	)
	smsClient := sms.NewClient(cfg.SMS.Username, cfg.SMS.APIKey, cfg.SMS.SenderID)

	// Initialize core components
	txLedger := ledger.New(db)
	interpreter := &ussd.Interpreter{OpsPhone: cfg.USSD.OpsPhone}

	// Initialize handlers
	ussdHandler := handlers.NewUSSDHandler(interpreter, paymentClient, smsClient)
	smsHandler := handlers.NewSMSHandler(smsClient)
	txHandler := handlers.NewTransactionHandler(txLedger, smsClient)

	// Initialize Gin router
	router := gin.Default()

	// Apply global middleware
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	rateLimiter := middleware.NewRateLimiter(20, 40)
	defer rateLimiter.Stop()
	router.Use(rateLimiter.Limit())

	// Setup routes
	routes.SetupRoutes(router, ussdHandler, smsHandler, txHandler)

	// Start server
	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
