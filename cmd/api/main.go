package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/config"
	"github.com/classpoint/classpoint-api/internal/database"
	"github.com/classpoint/classpoint-api/internal/handler"
	"github.com/classpoint/classpoint-api/internal/middleware"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
	"github.com/classpoint/classpoint-api/internal/router"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/storage"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Submission{},
		&models.Reward{},
		&models.Purchase{},
		&models.RewardPurchaseLedger{},
		&models.ReminderLog{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	files, err := storage.New(cfg.UploadDir, logger)
	if err != nil {
		log.Fatalf("failed to prepare upload storage: %v", err)
	}

	clock := timeutil.NewClock(cfg.ClockOffsetHours)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	reconciler := service.NewPointsReconciler(ledgerRepo, files, logger, clock.Now)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, logger, clock.Now)
	taskService := service.NewTaskService(taskRepo, reconciler, files, logger, clock.Now)
	submissionService := service.NewSubmissionService(submissionRepo, taskRepo, files, logger, clock.Now)
	shopService := service.NewShopService(rewardRepo, ledgerRepo, logger, clock.Now)
	studentService := service.NewStudentService(studentRepo, userRepo, taskRepo, submissionRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	userService := service.NewUserService(userRepo, reconciler, logger, clock.Now)

	deps := router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(authService, userService, validate, cfg.JWTCookieName, cfg.JWTExpiry, logger),
		TaskHandler:       handler.NewTaskHandler(taskService, submissionService, reconciler, studentService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, reconciler, studentService, validate, logger),
		ShopHandler:       handler.NewShopHandler(shopService, validate, logger),
		StudentHandler:    handler.NewStudentHandler(studentService, userService, logger),
		UserHandler:       handler.NewUserHandler(userService, studentService, validate, logger),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
