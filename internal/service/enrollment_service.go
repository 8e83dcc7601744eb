package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EnrollmentService управляет членством учеников в группах: зачисление,
// создание заготовок отметок, чистка при отчислении и приём оплат.
type EnrollmentService struct {
	pool             *pgxpool.Pool
	studentRepo      *repository.StudentRepository
	groupRepo        *repository.GroupRepository
	lessonRepo       *repository.LessonRepository
	attendanceRepo   *repository.AttendanceRepository
	studentGroupRepo *repository.StudentGroupRepository
	paymentRepo      *repository.PaymentRepository
	clock            Clock
	logger           *zap.Logger
}

func NewEnrollmentService(
	pool *pgxpool.Pool,
	studentRepo *repository.StudentRepository,
	groupRepo *repository.GroupRepository,
	lessonRepo *repository.LessonRepository,
	attendanceRepo *repository.AttendanceRepository,
	studentGroupRepo *repository.StudentGroupRepository,
	paymentRepo *repository.PaymentRepository,
	clock Clock,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		pool:             pool,
		studentRepo:      studentRepo,
		groupRepo:        groupRepo,
		lessonRepo:       lessonRepo,
		attendanceRepo:   attendanceRepo,
		studentGroupRepo: studentGroupRepo,
		paymentRepo:      paymentRepo,
		clock:            clock,
		logger:           logger,
	}
}

// CreateStudent создаёт ученика. Статус trial освобождает его от
// финансового учёта до перевода в regular.
func (s *EnrollmentService) CreateStudent(ctx context.Context, firstName, lastName string, status model.StudentStatus) (*model.Student, error) {
	if firstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	if status != model.StudentStatusRegular && status != model.StudentStatusTrial {
		return nil, fmt.Errorf("invalid student status %q", status)
	}

	student := &model.Student{
		FirstName: firstName,
		LastName:  lastName,
		Status:    status,
	}

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}

	s.logger.Info("Student created",
		zap.Int64("student_id", student.ID),
		zap.String("status", string(status)),
	)

	return student, nil
}

// Enroll зачисляет ученика в группу: создаёт членство с нулевым балансом
// и UNSPECIFIED-заготовки отметок на все текущие и будущие занятия.
// Статус ученика (regular/trial) копируется в отметки на момент создания.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, groupID int64) (*model.StudentGroup, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ledger.ErrNotFound)
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("group %d: %w", groupID, ledger.ErrNotFound)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sg := &model.StudentGroup{StudentID: studentID, GroupID: groupID}
	if err := s.studentGroupRepo.Create(ctx, tx, sg); err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}

	lessonIDs, err := s.lessonRepo.GetIDsByGroupFrom(ctx, tx, groupID, Today(s.clock))
	if err != nil {
		return nil, fmt.Errorf("get group lessons: %w", err)
	}

	created, err := s.attendanceRepo.CreateBatch(ctx, tx, studentID, student.Status, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("materialize attendance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Student enrolled",
		zap.Int64("student_id", studentID),
		zap.Int64("group_id", groupID),
		zap.Int64("attendances_created", created),
	)

	return sg, nil
}

// MaterializeAttendance создаёт UNSPECIFIED-заготовки отметок ученика на
// перечисленные занятия. Существующие пары (ученик, занятие) молча
// пропускаются — на пару существует не более одной отметки.
func (s *EnrollmentService) MaterializeAttendance(ctx context.Context, studentID, groupID int64, lessonIDs []int64) (int64, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return 0, fmt.Errorf("student %d: %w", studentID, ledger.ErrNotFound)
	}

	sg, err := s.studentGroupRepo.GetByStudentAndGroup(ctx, studentID, groupID)
	if err != nil {
		return 0, fmt.Errorf("get membership: %w", err)
	}
	if sg == nil {
		return 0, fmt.Errorf("membership (student=%d, group=%d): %w", studentID, groupID, ledger.ErrNotFound)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.attendanceRepo.CreateBatch(ctx, tx, studentID, student.Status, lessonIDs)
	if err != nil {
		return 0, fmt.Errorf("materialize attendance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return created, nil
}

// PurgeFutureUnspecified удаляет при отчислении только нетронутые
// (UNSPECIFIED) отметки ученика на занятия с датой сегодня и позже.
// Отметки с проставленным статусом — неизменяемая история списаний,
// они сохраняются для целостности аудита.
func (s *EnrollmentService) PurgeFutureUnspecified(ctx context.Context, studentID, groupID int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	purged, err := s.attendanceRepo.DeleteFutureUnspecified(ctx, tx, studentID, groupID, Today(s.clock))
	if err != nil {
		return 0, fmt.Errorf("purge future attendances: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Future attendances purged",
		zap.Int64("student_id", studentID),
		zap.Int64("group_id", groupID),
		zap.Int64("purged", purged),
	)

	return purged, nil
}

// RecordPayment регистрирует оплату по членству: пополняет баланс
// занятий и сумму оплат одной транзакцией. Оплаты не проходят через
// журнал посещаемости — это отдельный биллинговый контур.
func (s *EnrollmentService) RecordPayment(ctx context.Context, actorUserID, studentGroupID int64, amount decimal.Decimal, lessonsPaid int) (*model.Payment, error) {
	if lessonsPaid <= 0 {
		return nil, fmt.Errorf("lessons paid must be positive, got %d", lessonsPaid)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("payment amount cannot be negative")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.studentGroupRepo.AddPayment(ctx, tx, studentGroupID, amount, lessonsPaid); err != nil {
		return nil, fmt.Errorf("add payment to membership: %w", err)
	}

	payment := &model.Payment{
		StudentGroupID: studentGroupID,
		ActorUserID:    actorUserID,
		Amount:         amount,
		LessonsPaid:    lessonsPaid,
	}

	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("student_group_id", studentGroupID),
		zap.String("amount", amount.String()),
		zap.Int("lessons_paid", lessonsPaid),
	)

	return payment, nil
}

// ListPayments возвращает оплаты по членству, новые первыми
func (s *EnrollmentService) ListPayments(ctx context.Context, studentGroupID int64) ([]*model.Payment, error) {
	return s.paymentRepo.GetByStudentGroup(ctx, studentGroupID)
}
