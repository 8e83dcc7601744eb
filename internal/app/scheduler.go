package app

import (
	"context"
	"time"

	"github.com/selfdestroying/eduda-sub001/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	scheduleService *service.ScheduleService
	horizon         int // Минимум будущих занятий на группу
	logger          *zap.Logger
	stopChan        chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(scheduleService *service.ScheduleService, horizon int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduleService: scheduleService,
		horizon:         horizon,
		logger:          logger,
		stopChan:        make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Int("lesson_horizon", s.horizon))

	go s.runHorizonTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runHorizonTask раз в сутки поддерживает горизонт будущих занятий:
// догенерирует занятия и заготовки отметок так, чтобы у каждой группы
// впереди было не меньше horizon занятий
func (s *Scheduler) runHorizonTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.maintainHorizon(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.maintainHorizon(ctx)
		case <-s.stopChan:
			s.logger.Info("Lesson horizon task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Lesson horizon task cancelled")
			return
		}
	}
}

func (s *Scheduler) maintainHorizon(ctx context.Context) {
	s.logger.Info("Starting lesson horizon maintenance")

	if err := s.scheduleService.EnsureAllGroupsHorizon(ctx, s.horizon); err != nil {
		s.logger.Error("Failed to maintain lesson horizon", zap.Error(err))
		return
	}
}
