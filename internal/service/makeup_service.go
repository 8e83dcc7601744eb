package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
	"go.uber.org/zap"
)

// MakeUpService управляет связями отработок. Связь направленная и
// строго 1:1 с обеих сторон; конфликты не разрешаются автоматически.
type MakeUpService struct {
	pool           *pgxpool.Pool
	makeupRepo     *repository.MakeUpRepository
	attendanceRepo *repository.AttendanceRepository
	logger         *zap.Logger
}

func NewMakeUpService(
	pool *pgxpool.Pool,
	makeupRepo *repository.MakeUpRepository,
	attendanceRepo *repository.AttendanceRepository,
	logger *zap.Logger,
) *MakeUpService {
	return &MakeUpService{
		pool:           pool,
		makeupRepo:     makeupRepo,
		attendanceRepo: attendanceRepo,
		logger:         logger,
	}
}

// CreateMakeUp связывает пропуск с отметкой-отработкой. Обе половины
// связи устанавливаются атомарно. Возвращает ledger.ErrMakeUpConflict
// если у пропуска уже есть отработка либо отметка уже закрывает другой
// пропуск.
func (s *MakeUpService) CreateMakeUp(ctx context.Context, missedAttendanceID, makeupAttendanceID int64) (*model.MakeUp, error) {
	if missedAttendanceID == makeupAttendanceID {
		return nil, fmt.Errorf("attendance cannot make up itself: %w", ledger.ErrMakeUpConflict)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем обе отметки: проверка занятости и вставка связи должны
	// быть атомарны относительно конкурентных привязок
	missed, err := s.attendanceRepo.GetForUpdate(ctx, tx, missedAttendanceID)
	if err != nil {
		return nil, fmt.Errorf("get missed attendance: %w", err)
	}
	if missed == nil {
		return nil, fmt.Errorf("missed attendance %d: %w", missedAttendanceID, ledger.ErrNotFound)
	}

	makeup, err := s.attendanceRepo.GetForUpdate(ctx, tx, makeupAttendanceID)
	if err != nil {
		return nil, fmt.Errorf("get makeup attendance: %w", err)
	}
	if makeup == nil {
		return nil, fmt.Errorf("makeup attendance %d: %w", makeupAttendanceID, ledger.ErrNotFound)
	}

	existing, err := s.makeupRepo.GetByMissed(ctx, tx, missedAttendanceID)
	if err != nil {
		return nil, fmt.Errorf("check missed side: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("attendance %d already has a makeup: %w", missedAttendanceID, ledger.ErrMakeUpConflict)
	}

	existing, err = s.makeupRepo.GetByMakeUp(ctx, tx, makeupAttendanceID)
	if err != nil {
		return nil, fmt.Errorf("check makeup side: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("attendance %d already covers another absence: %w", makeupAttendanceID, ledger.ErrMakeUpConflict)
	}

	link := &model.MakeUp{
		MissedAttendanceID: missedAttendanceID,
		MakeUpAttendanceID: makeupAttendanceID,
	}

	if err := s.makeupRepo.Create(ctx, tx, link); err != nil {
		// Гонку, проскочившую обе проверки, ловит уникальный индекс
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("concurrent makeup link: %w", ledger.ErrMakeUpConflict)
		}
		return nil, fmt.Errorf("create makeup link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Makeup link created",
		zap.Int64("makeup_id", link.ID),
		zap.Int64("missed_attendance_id", missedAttendanceID),
		zap.Int64("makeup_attendance_id", makeupAttendanceID),
	)

	return link, nil
}

// DeleteMakeUp снимает связь отработки с пропуска
func (s *MakeUpService) DeleteMakeUp(ctx context.Context, missedAttendanceID int64) error {
	affected, err := s.makeupRepo.DeleteByMissed(ctx, missedAttendanceID)
	if err != nil {
		return fmt.Errorf("delete makeup link: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("makeup for attendance %d: %w", missedAttendanceID, ledger.ErrNotFound)
	}

	s.logger.Info("Makeup link deleted",
		zap.Int64("missed_attendance_id", missedAttendanceID))

	return nil
}

// IsSaved проверяет закрыт ли пропуск: отработка назначена и ученик на
// неё пришёл (статус отработки PRESENT)
func (s *MakeUpService) IsSaved(ctx context.Context, missedAttendanceID int64) (bool, error) {
	link, err := s.makeupRepo.GetByMissed(ctx, nil, missedAttendanceID)
	if err != nil {
		return false, fmt.Errorf("get makeup link: %w", err)
	}
	if link == nil {
		return false, nil
	}

	makeup, err := s.attendanceRepo.GetByID(ctx, link.MakeUpAttendanceID)
	if err != nil {
		return false, fmt.Errorf("get makeup attendance: %w", err)
	}
	if makeup == nil {
		return false, nil
	}

	return makeup.Status == model.AttendanceStatusPresent, nil
}
