package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meridianbank/backend/docs"
	"github.com/meridianbank/backend/internal/database"
	"github.com/meridianbank/backend/internal/handlers"
	mW "github.com/meridianbank/backend/internal/middleware"
	"github.com/meridianbank/backend/internal/services"
	"github.com/meridianbank/backend/internal/vault"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Meridian Ledger API
// @version 1.0
// @description Double-entry ledger core with accounts, transactions, transfers, cards and statements
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("vault.key", "VAULT_KEY")
	viper.BindEnv("ledger.lock_strategy", "LEDGER_LOCK_STRATEGY")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Meridian Ledger API"
	docs.SwaggerInfo.Description = "Double-entry ledger core with accounts, transactions, transfers, cards and statements"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	cardVault, err := vault.New()
	if err != nil {
		log.Fatalf("Failed to initialize card vault: %v", err)
	}

	// Postgres row locks by default; the serial strategy exists for
	// storage without FOR UPDATE support.
	var locker database.AccountLocker = database.RowLocker{}
	if viper.GetString("ledger.lock_strategy") == "serial" {
		locker = database.NewSerialLocker()
		log.Println("Using serialized in-process account locking")
	}

	transactionService := services.NewTransactionService(db, locker)
	accountService := services.NewAccountService(db)
	cardService := services.NewCardService(db, cardVault)
	statementService := services.NewStatementService(db, accountService, transactionService)
	iso20022Service := services.NewISO20022Service()
	authService := services.NewAuthService(db, redisClient)
	qrService := services.NewQRService(db, redisClient)

	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	cardHandler := handlers.NewCardHandler(cardService)
	statementHandler := handlers.NewStatementHandler(statementService)
	qrHandler := handlers.NewQRHandler(qrService)
	isoHandler := handlers.NewISOHandler(iso20022Service, transactionService, accountService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/profile", authService.GetProfile)

			// Accounts
			r.Post("/accounts", accountHandler.Create)
			r.Get("/accounts", accountHandler.List)
			r.Get("/accounts/{accountId}", accountHandler.Get)
			r.Delete("/accounts/{accountId}", accountHandler.Deactivate)
			r.Get("/accounts/{accountId}/balance", accountHandler.GetBalance)

			// Transactions and transfers
			r.Post("/accounts/{accountId}/transactions", transactionHandler.Create)
			r.Get("/accounts/{accountId}/transactions", transactionHandler.List)
			r.Get("/accounts/{accountId}/transactions/{transactionId}", transactionHandler.Get)
			r.Post("/accounts/{accountId}/transfers", transactionHandler.Transfer)

			// Cards
			r.Post("/accounts/{accountId}/card", cardHandler.Issue)
			r.Get("/accounts/{accountId}/card", cardHandler.Get)
			r.Delete("/accounts/{accountId}/card", cardHandler.Deactivate)

			// Statements
			r.Get("/accounts/{accountId}/statements/{year}/{month}", statementHandler.Get)

			// Receive-money QR codes
			r.Post("/accounts/{accountId}/receive-code", qrHandler.Generate)
			r.Post("/receive-code/resolve", qrHandler.Resolve)

			// ISO 20022 reconciliation exports
			r.Get("/accounts/{accountId}/transfers/{transferPairId}/iso20022", isoHandler.ExportTransfer)
			r.Get("/accounts/{accountId}/transactions/{transactionId}/iso20022", isoHandler.ExportStatus)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.AdminMiddleware)

				r.Get("/admin/accounts", accountHandler.AdminList)
				r.Get("/admin/accounts/{accountId}", accountHandler.AdminGet)
				r.Get("/admin/accounts/{accountId}/balance", accountHandler.AdminGetBalance)
				r.Get("/admin/transactions", transactionHandler.AdminList)
				r.Get("/admin/transactions/{transactionId}", transactionHandler.AdminGet)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
