package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"subtrack/internal/api"
	"subtrack/internal/api/handlers"
	"subtrack/internal/repository"
	"subtrack/internal/service"
	"subtrack/pkg/config"
	"subtrack/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Subtrack service")

	ctx := context.Background()

	// Initialize repository and services
	sessionRepo := repository.NewSessionRepository(appLogger)

	llmService, err := service.NewLLMService(ctx, &cfg.Gemini, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}

	extractService := service.NewExtractService(appLogger)
	statementService := service.NewStatementService(sessionRepo, extractService, llmService, appLogger)

	// Initialize handlers and router
	statementHandler := handlers.NewStatementHandler(statementService, appLogger)
	app := api.SetupRouter(statementHandler, cfg, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
