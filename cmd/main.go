package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/config"
	"github.com/minisource/httpscheduler/internal/database"
	"github.com/minisource/httpscheduler/internal/handler"
	"github.com/minisource/httpscheduler/internal/ratelimit"
	"github.com/minisource/httpscheduler/internal/reconciler"
	"github.com/minisource/httpscheduler/internal/repository"
	"github.com/minisource/httpscheduler/internal/retention"
	"github.com/minisource/httpscheduler/internal/router"
	"github.com/minisource/httpscheduler/internal/scheduler"
	"github.com/minisource/httpscheduler/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to auto-migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	guard := scheduler.NewInstanceGuard(redisClient, workerID, time.Duration(cfg.Scheduler.LockTTLSeconds)*time.Second)
	acquired, err := guard.Acquire(ctx)
	if err != nil {
		log.Fatalf("Failed to acquire single-instance guard: %v", err)
	}
	if !acquired {
		log.Fatal("Another scheduler instance already holds the single-instance guard")
	}

	guardCtx, cancelGuard := context.WithCancel(ctx)
	defer cancelGuard()
	go guard.Run(guardCtx, time.Duration(cfg.Scheduler.HeartbeatSeconds)*time.Second)

	jobRepo := repository.NewJobRepository(db)
	logRepo := repository.NewLogRepository(db)

	sched := scheduler.NewScheduler(cfg, jobRepo, logRepo)
	triggers := ratelimit.NewTriggerLimiter()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Printf("main: unknown TZ %q, defaulting retention sweeper to UTC: %v", cfg.Scheduler.Timezone, err)
		loc = time.UTC
	}
	sweeper := retention.NewSweeper(logRepo, cfg.Retention, loc)

	jobService := service.NewJobService(jobRepo, sched)
	logService := service.NewLogService(logRepo)

	handlers := &router.Handlers{
		Job:    handler.NewJobHandler(jobService, sched, triggers),
		Log:    handler.NewLogHandler(logService),
		Health: handler.NewHealthHandler(db, sched),
	}

	app := fiber.New(fiber.Config{
		AppName:      "HTTP Scheduler",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	})

	router.SetupRouter(app, handlers)

	if failed, err := reconciler.Bootstrap(ctx, jobRepo, sched); err != nil {
		log.Fatalf("Failed to bootstrap active jobs: %v", err)
	} else if len(failed) > 0 {
		log.Printf("Bootstrap: %d job(s) failed to register, continuing with the rest", len(failed))
	}

	sched.Start(ctx)

	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("Failed to start retention sweeper: %v", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting scheduler service on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler service...")

	sweeper.Stop()
	sched.Stop()
	cancelGuard()
	if err := guard.Release(context.Background()); err != nil {
		log.Printf("Failed to release single-instance guard: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Scheduler service stopped")
}
