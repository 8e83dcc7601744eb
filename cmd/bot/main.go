package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/app"
	"github.com/selfdestroying/eduda-sub001/internal/config"
	"github.com/selfdestroying/eduda-sub001/internal/controller"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/selfdestroying/eduda-sub001/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting attendance bot",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone.String()),
		zap.Int("lesson_horizon", cfg.LessonHorizon),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	studentRepo := repository.NewStudentRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	lessonRepo := repository.NewLessonRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	studentGroupRepo := repository.NewStudentGroupRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	makeupRepo := repository.NewMakeUpRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	clock := service.NewSystemClock(cfg.Timezone)

	// Сервисы
	ledgerService := service.NewLedgerService(
		pool, attendanceRepo, studentGroupRepo, historyRepo, makeupRepo, studentRepo, logger)
	scheduleService := service.NewScheduleService(
		pool, groupRepo, lessonRepo, studentRepo, attendanceRepo, clock, logger)
	enrollmentService := service.NewEnrollmentService(
		pool, studentRepo, groupRepo, lessonRepo, attendanceRepo, studentGroupRepo, paymentRepo, clock, logger)
	makeupService := service.NewMakeUpService(pool, makeupRepo, attendanceRepo, logger)
	reportService := service.NewReportService(reportRepo, studentGroupRepo, logger)

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	botController := controller.NewBotController(
		b, ledgerService, scheduleService, reportService, enrollmentService, makeupService,
		attendanceRepo, historyRepo, clock, logger)

	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register handlers", zap.Error(err))
	}

	scheduler := app.NewScheduler(scheduleService, cfg.LessonHorizon, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	botController.Start(ctx)

	logger.Info("Shutting down")
}
