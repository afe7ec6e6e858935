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

	"nutrichat-backend/internal/config"
	"nutrichat-backend/internal/database"
	"nutrichat-backend/internal/handlers"
	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/nutrition"
	"nutrichat-backend/internal/repository"
	"nutrichat-backend/internal/router"
	"nutrichat-backend/internal/services"
	"nutrichat-backend/internal/websocket"
	"nutrichat-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting NutriChat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	mealRepo := repository.NewMealRepo(pool)
	catalogRepo := repository.NewCatalogRepo(pool)
	preferenceRepo := repository.NewPreferenceRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, cfg.GeminiTimeoutSecs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService)

	mealPipeline := nutrition.NewPipeline(geminiService, catalogRepo, mealRepo, nutrition.Config{
		SupportsImage:             true,
		SupportsPortionAdjustment: true,
	})
	chatService := services.NewChatService(geminiService, mealPipeline, chatRepo, mealRepo, preferenceRepo, redisClients.Queue)
	rollupNotifier := services.NewRollupNotifier(redisClients.Queue)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService, chatRepo)
	mealHandler := handlers.NewMealHandler(mealRepo, rollupNotifier)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceRepo)
	dashboardHandler := handlers.NewDashboardHandler(mealRepo, redisClients.Queue)

	// ──── Step 6: Start Rollup Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, mealRepo, cfg.RollupWorkers)
	workerPool.Start()
	log.Printf("✓ Rollup worker pool started (%d goroutines)", cfg.RollupWorkers)

	reminderScheduler := services.NewReminderScheduler(userRepo, emailService, redisClients.Queue)
	reminderScheduler.Start()
	log.Println("✓ Meal reminder scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		mealHandler,
		catalogHandler,
		preferenceHandler,
		dashboardHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// SSE chat streams outlive any fixed write deadline
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		reminderScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ NutriChat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
