// File: app/app.go
package app

import (
	"context"
	"fmt"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	dbCfg := config.AppConfig.Database
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name)
	if err := db.RunMigrations(connStr, "file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	// Repositories, services, and handlers are created and injected here.

	userRepo := repository.NewUserRepository(database)

	jwtCfg := config.AppConfig.JWT
	signer := service.NewJWTSigner(service.SignerConfig{
		AccessSecret:  jwtCfg.AccessSecret,
		RefreshSecret: jwtCfg.RefreshSecret,
		ResetSecret:   jwtCfg.ResetSecret,
		AccessTTL:     jwtCfg.AccessTTL,
		RefreshTTL:    jwtCfg.RefreshTTL,
		ResetTTL:      jwtCfg.ResetTTL,
	})

	mailCfg := config.AppConfig.Mail
	mailer := service.NewSMTPMailer(mailCfg.Host, mailCfg.Port, mailCfg.Username, mailCfg.Password, mailCfg.From)

	authService := service.NewAuthService(userRepo, signer, mailer, service.AuthConfig{
		BcryptCost: config.AppConfig.Bcrypt.Cost,
		AppBaseURL: config.AppConfig.App.BaseURL,
	})
	authHandler := handler.NewAuthHandler(authService)

	userService := service.NewUserService(userRepo, redisClient)
	userHandler := handler.NewUserHandler(userService)

	// Start the router with all handlers
	r := router.NewRouter(authHandler, userHandler, signer)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
