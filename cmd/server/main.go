package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pv_design/internal/api"
	"pv_design/internal/config"
	"pv_design/internal/repository"
	"pv_design/internal/service"
	"pv_design/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.LogDir)
	logger.Info("Starting PV Layout Designer")

	// Load stores
	templates, err := repository.LoadTemplateStore(cfg.TemplateStorePath)
	if err != nil {
		log.Fatal("Failed to load template store:", err)
	}
	inverters, err := repository.LoadInverterStore(cfg.InverterStorePath)
	if err != nil {
		log.Fatal("Failed to load inverter store:", err)
	}
	if err := os.MkdirAll(cfg.ProjectDir, 0755); err != nil {
		log.Fatal("Failed to create project directory:", err)
	}

	// Initialize configurator
	svc, err := service.NewService(cfg, templates, inverters)
	if err != nil {
		log.Fatal("Failed to initialize configurator:", err)
	}
	svc.OnBlocksChanged(func() {
		logger.Debug("Blocks changed")
	})

	// Setup HTTP server
	router := setupRouter(svc)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced shutdown:", err)
	}

	logger.Info("Server stopped gracefully")
}

func setupRouter(svc *service.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.SetupRoutes(router, svc)
	return router
}
