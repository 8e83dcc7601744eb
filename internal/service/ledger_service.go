package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Интерфейсы хранилищ журнала. Сервис принимает интерфейсы, а не
// конкретные репозитории, чтобы транзакционную обвязку можно было
// проверить без БД.

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type attendanceStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Attendance, error)
	UpdateState(ctx context.Context, tx pgx.Tx, id int64, status model.AttendanceStatus, isWarned *bool) error
	UpdateComment(ctx context.Context, id int64, comment string) (int64, error)
}

type membershipStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (*model.StudentGroup, error)
	ApplyDelta(ctx context.Context, tx pgx.Tx, id int64, delta, totalDelta int) error
}

type historyStore interface {
	Create(ctx context.Context, tx pgx.Tx, h *model.LessonsBalanceHistory) error
	ExistsForStudentGroup(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (bool, error)
}

type makeUpLinkStore interface {
	GetByMakeUp(ctx context.Context, q base.Querier, makeupAttendanceID int64) (*model.MakeUp, error)
}

type coinStore interface {
	AddCoins(ctx context.Context, tx pgx.Tx, id int64, delta int) error
}

// LedgerService транзакционная обвязка журнала посещаемости.
// Вся бизнес-логика перехода (дельта, причина, монеты) — в пакете
// ledger; здесь только чтения, блокировки и записи одной транзакцией.
type LedgerService struct {
	db          txBeginner
	attendances attendanceStore
	memberships membershipStore
	history     historyStore
	makeups     makeUpLinkStore
	students    coinStore
	logger      *zap.Logger
}

func NewLedgerService(
	db txBeginner,
	attendances attendanceStore,
	memberships membershipStore,
	history historyStore,
	makeups makeUpLinkStore,
	students coinStore,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		db:          db,
		attendances: attendances,
		memberships: memberships,
		history:     history,
		makeups:     makeups,
		students:    students,
		logger:      logger,
	}
}

// ApplyStatusChange проводит смену статуса/флага отметки через журнал:
// в одной транзакции пересчитывается баланс членства, пишется проводка
// в историю, начисляются/снимаются монеты и сохраняется сама отметка.
// Либо применяется всё, либо ничего.
//
// Конфликт сериализации повторяется один раз со свежим чтением;
// повторный отказ возвращается как ledger.ErrTxConflict.
func (s *LedgerService) ApplyStatusChange(ctx context.Context, actorUserID, attendanceID int64, newStatus model.AttendanceStatus, newIsWarned *bool) error {
	if !newStatus.Valid() {
		return fmt.Errorf("invalid attendance status %q", newStatus)
	}

	backoff := retry.WithMaxRetries(1, retry.NewConstant(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.applyOnce(ctx, actorUserID, attendanceID, newStatus, newIsWarned)
		if base.IsSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	if base.IsSerializationFailure(err) {
		s.logger.Warn("Status change lost serialization conflict twice",
			zap.Int64("attendance_id", attendanceID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ledger.ErrTxConflict, err)
	}

	return err
}

func (s *LedgerService) applyOnce(ctx context.Context, actorUserID, attendanceID int64, newStatus model.AttendanceStatus, newIsWarned *bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Старое состояние читается заново под блокировкой строки отметки:
	// дельта никогда не считается от значения прочитанного до начала
	// транзакции
	att, err := s.attendances.GetForUpdate(ctx, tx, attendanceID)
	if err != nil {
		return fmt.Errorf("get attendance: %w", err)
	}
	if att == nil {
		return fmt.Errorf("attendance %d: %w", attendanceID, ledger.ErrNotFound)
	}

	groupID := att.Lesson.GroupID

	// Пробные ученики не участвуют в финансовом учёте: сохраняется
	// только сама отметка, баланс, история и монеты не трогаются
	if att.StudentStatus == model.StudentStatusTrial {
		return s.applyTrial(ctx, tx, att, groupID, newStatus, newIsWarned)
	}

	link, err := s.makeups.GetByMakeUp(ctx, tx, att.ID)
	if err != nil {
		return fmt.Errorf("get makeup link: %w", err)
	}

	oldState := ledger.State{Status: att.Status, IsWarned: att.IsWarned}
	newState := ledger.State{Status: newStatus, IsWarned: newIsWarned}
	tr := ledger.ComputeTransition(oldState, newState, link != nil)

	if tr.Delta != 0 {
		sg, err := s.memberships.GetForUpdate(ctx, tx, att.StudentID, groupID)
		if err != nil {
			return fmt.Errorf("get student group: %w", err)
		}
		if sg == nil {
			return fmt.Errorf("student group (student=%d, group=%d): %w", att.StudentID, groupID, ledger.ErrNotFound)
		}

		// total_lessons двигается противоположно дельте: новое
		// списание увеличивает счётчик, отмена уменьшает
		if err := s.memberships.ApplyDelta(ctx, tx, sg.ID, tr.Delta, -tr.Delta); err != nil {
			return fmt.Errorf("apply delta: %w", err)
		}

		entry := &model.LessonsBalanceHistory{
			ID:            uuid.New(),
			ActorUserID:   actorUserID,
			StudentID:     att.StudentID,
			GroupID:       groupID,
			Delta:         tr.Delta,
			BalanceBefore: sg.LessonsBalance,
			BalanceAfter:  sg.LessonsBalance + tr.Delta,
			Reason:        tr.Reason,
			Meta: model.BalanceHistoryMeta{
				AttendanceID: att.ID,
				LessonID:     att.LessonID,
				OldStatus:    att.Status,
				NewStatus:    newStatus,
				OldIsWarned:  att.IsWarned,
				NewIsWarned:  newIsWarned,
				IsMakeUp:     link != nil,
			},
		}

		if err := s.history.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("create history entry: %w", err)
		}
	}

	if tr.CoinDelta != 0 {
		if err := s.students.AddCoins(ctx, tx, att.StudentID, tr.CoinDelta); err != nil {
			return fmt.Errorf("add coins: %w", err)
		}
	}

	if err := s.attendances.UpdateState(ctx, tx, att.ID, newStatus, newIsWarned); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Attendance status changed",
		zap.Int64("attendance_id", att.ID),
		zap.Int64("student_id", att.StudentID),
		zap.Int64("group_id", groupID),
		zap.Int64("actor_user_id", actorUserID),
		zap.String("old_status", string(att.Status)),
		zap.String("new_status", string(newStatus)),
		zap.Int("delta", tr.Delta),
		zap.Int("coin_delta", tr.CoinDelta),
		zap.String("reason", string(tr.Reason)),
	)

	return nil
}

// applyTrial сохраняет отметку пробного ученика мимо журнала,
// предварительно проверив инвариант: у пробного ученика не должно быть
// ни одной проводки в истории. Нарушение означает порчу данных
// (флаг trial выставлен после списаний) и не глотается.
func (s *LedgerService) applyTrial(ctx context.Context, tx pgx.Tx, att *model.Attendance, groupID int64, newStatus model.AttendanceStatus, newIsWarned *bool) error {
	exists, err := s.history.ExistsForStudentGroup(ctx, tx, att.StudentID, groupID)
	if err != nil {
		return fmt.Errorf("check trial invariant: %w", err)
	}
	if exists {
		s.logger.Error("Trial student has charged history entries",
			zap.Int64("attendance_id", att.ID),
			zap.Int64("student_id", att.StudentID),
			zap.Int64("group_id", groupID),
		)
		return fmt.Errorf("trial student %d has balance history in group %d: %w", att.StudentID, groupID, ledger.ErrInvariant)
	}

	if err := s.attendances.UpdateState(ctx, tx, att.ID, newStatus, newIsWarned); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Trial attendance status changed",
		zap.Int64("attendance_id", att.ID),
		zap.Int64("student_id", att.StudentID),
		zap.String("new_status", string(newStatus)),
	)

	return nil
}

// UpdateComment обновляет комментарий отметки. Быстрый путь: статус и
// баланс не затрагиваются, журнал не участвует.
func (s *LedgerService) UpdateComment(ctx context.Context, attendanceID int64, comment string) error {
	affected, err := s.attendances.UpdateComment(ctx, attendanceID, comment)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("attendance %d: %w", attendanceID, ledger.ErrNotFound)
	}

	return nil
}
