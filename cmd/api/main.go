package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/glicko2-ratings/internal/config"
	"github.com/iamasit07/glicko2-ratings/internal/repository/postgres"
	"github.com/iamasit07/glicko2-ratings/internal/repository/redis"
	"github.com/iamasit07/glicko2-ratings/internal/service/period"
	"github.com/iamasit07/glicko2-ratings/internal/service/rating"
	transportHttp "github.com/iamasit07/glicko2-ratings/internal/transport/http"
	"github.com/iamasit07/glicko2-ratings/internal/transport/http/middleware"
	"github.com/iamasit07/glicko2-ratings/internal/transport/websocket"
	"github.com/iamasit07/glicko2-ratings/pkg/auth"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 1. Database
	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")

	playerRepo := postgres.NewPlayerRepo(db)
	periodRepo := postgres.NewPeriodRepo(db)

	// 2. Redis (optional)
	if err := redis.InitRedis(cfg.RedisURL, cfg.RedisPassword); err != nil {
		log.Printf("Failed to initialize Redis: %v", err)
	}
	defer redis.CloseRedis()

	var cache rating.CacheRepository
	if redis.IsRedisEnabled() && redis.RedisClient != nil {
		cache = redis.NewRedisCache(redis.RedisClient)
	}

	// 3. Services
	connManager := websocket.NewConnectionManager()
	ratingService := rating.NewService(playerRepo, periodRepo, cache, connManager, cfg.GlickoSettings(), cfg.LeaderboardCacheTTL)
	ratingService.SetLeaderboardLimit(cfg.LeaderboardLimit)
	log.Printf("Rating system: tau=%v tolerance=%v max iterations=%d", cfg.Tau, cfg.Tolerance, cfg.MaxIterations)

	if _, err := periodRepo.GetOrCreateOpenPeriod(context.Background()); err != nil {
		log.Fatalf("Failed to open rating period: %v", err)
	}

	// 4. Background scheduler
	scheduler := period.NewScheduler(ratingService, cfg.PeriodSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start period scheduler: %v", err)
	}
	log.Printf("Next rating period close at %s", scheduler.Next().Format(time.RFC3339))

	// 5. HTTP
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	ratingHandler := transportHttp.NewRatingHandler(ratingService)
	wsHandler := websocket.NewHandler(connManager, cfg.AllowedOrigins)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	ratingHandler.RegisterRoutes(router, middleware.AuthMiddleware(issuer, auth.RoleAdmin))
	router.GET("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
