package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/selfdestroying/eduda-sub001/internal/schedule"
	"go.uber.org/zap"
)

// ScheduleService управляет расписанием групп: создание занятий по
// недельным слотам, перенос будущих занятий при смене дня/времени и
// поддержание горизонта будущих занятий.
type ScheduleService struct {
	pool           *pgxpool.Pool
	groupRepo      *repository.GroupRepository
	lessonRepo     *repository.LessonRepository
	studentRepo    *repository.StudentRepository
	attendanceRepo *repository.AttendanceRepository
	clock          Clock
	logger         *zap.Logger
}

func NewScheduleService(
	pool *pgxpool.Pool,
	groupRepo *repository.GroupRepository,
	lessonRepo *repository.LessonRepository,
	studentRepo *repository.StudentRepository,
	attendanceRepo *repository.AttendanceRepository,
	clock Clock,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		pool:           pool,
		groupRepo:      groupRepo,
		lessonRepo:     lessonRepo,
		studentRepo:    studentRepo,
		attendanceRepo: attendanceRepo,
		clock:          clock,
		logger:         logger,
	}
}

// CreateGroup создаёт группу и разворачивает её расписание в занятия
// начиная с startDate. Если подходящих дней в пределах перебора не
// хватило, занятий будет меньше lessonCount — это не ошибка, но
// вызывающий получает фактический список.
func (s *ScheduleService) CreateGroup(ctx context.Context, name string, weekday int, lessonTime string, startDate time.Time, lessonCount int) (*model.Group, []int64, error) {
	if weekday < 0 || weekday > 6 {
		return nil, nil, fmt.Errorf("invalid weekday %d", weekday)
	}

	occurrences := schedule.Expand(startDate, []schedule.Slot{
		{Weekday: time.Weekday(weekday), Time: lessonTime},
	}, lessonCount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	group := &model.Group{
		Name:       name,
		Weekday:    weekday,
		LessonTime: lessonTime,
	}

	if err := s.groupRepo.Create(ctx, tx, group); err != nil {
		return nil, nil, fmt.Errorf("create group: %w", err)
	}

	lessonIDs, err := s.lessonRepo.CreateBatch(ctx, tx, group.ID, occurrences)
	if err != nil {
		return nil, nil, fmt.Errorf("create lessons: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	if len(lessonIDs) < lessonCount {
		s.logger.Warn("Schedule expansion produced fewer lessons than requested",
			zap.Int64("group_id", group.ID),
			zap.Int("requested", lessonCount),
			zap.Int("created", len(lessonIDs)),
		)
	}

	s.logger.Info("Group created",
		zap.Int64("group_id", group.ID),
		zap.String("name", name),
		zap.Int("weekday", weekday),
		zap.String("lesson_time", lessonTime),
		zap.Int("lessons_created", len(lessonIDs)),
	)

	return group, lessonIDs, nil
}

// RescheduleGroup меняет основной день недели и время группы и переносит
// только будущие занятия (дата >= сегодня по часам центра): первое
// будущее занятие встаёт на ближайшую дату нового дня недели строго
// после сегодня, остальные — с шагом в 7 дней. Количество и порядок
// занятий не меняются, прошедшие занятия не трогаются.
func (s *ScheduleService) RescheduleGroup(ctx context.Context, groupID int64, newWeekday int, newTime string) error {
	if newWeekday < 0 || newWeekday > 6 {
		return fmt.Errorf("invalid weekday %d", newWeekday)
	}

	today := Today(s.clock)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return fmt.Errorf("group %d: %w", groupID, ledger.ErrNotFound)
	}

	future, err := s.lessonRepo.GetFutureByGroup(ctx, tx, groupID, today)
	if err != nil {
		return fmt.Errorf("get future lessons: %w", err)
	}

	anchor := schedule.NextAnchor(today, time.Weekday(newWeekday))
	dates := schedule.Restamp(anchor, len(future))

	for i, lesson := range future {
		if err := s.lessonRepo.Restamp(ctx, tx, lesson.ID, dates[i], newTime); err != nil {
			return fmt.Errorf("restamp lesson %d: %w", lesson.ID, err)
		}
	}

	if err := s.groupRepo.UpdateSchedule(ctx, tx, groupID, newWeekday, newTime); err != nil {
		return fmt.Errorf("update group schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Group rescheduled",
		zap.Int64("group_id", groupID),
		zap.Int("new_weekday", newWeekday),
		zap.String("new_time", newTime),
		zap.Int("lessons_restamped", len(future)),
	)

	return nil
}

// EnsureLessonHorizon догенерирует занятия группы так, чтобы впереди
// было не меньше horizon будущих занятий, и создаёт заготовки отметок
// для всех учеников группы на новые занятия. Вызывается фоновой задачей.
func (s *ScheduleService) EnsureLessonHorizon(ctx context.Context, groupID int64, horizon int) (int, error) {
	today := Today(s.clock)

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return 0, fmt.Errorf("group %d: %w", groupID, ledger.ErrNotFound)
	}

	count, err := s.lessonRepo.CountFutureByGroup(ctx, groupID, today)
	if err != nil {
		return 0, fmt.Errorf("count future lessons: %w", err)
	}

	missing := horizon - count
	if missing <= 0 {
		return 0, nil
	}

	// Новые занятия продолжают расписание после последнего
	// существующего, либо начинаются с сегодня если занятий ещё нет
	start := today
	lastDate, err := s.lessonRepo.GetLastDateByGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("get last lesson date: %w", err)
	}
	if lastDate != nil && !lastDate.Before(today) {
		start = lastDate.AddDate(0, 0, 1)
	}

	occurrences := schedule.Expand(start, []schedule.Slot{
		{Weekday: time.Weekday(group.Weekday), Time: group.LessonTime},
	}, missing)

	students, err := s.studentRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("get group students: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lessonIDs, err := s.lessonRepo.CreateBatch(ctx, tx, groupID, occurrences)
	if err != nil {
		return 0, fmt.Errorf("create lessons: %w", err)
	}

	for _, student := range students {
		if _, err := s.attendanceRepo.CreateBatch(ctx, tx, student.ID, student.Status, lessonIDs); err != nil {
			return 0, fmt.Errorf("materialize attendance for student %d: %w", student.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Lesson horizon extended",
		zap.Int64("group_id", groupID),
		zap.Int("lessons_created", len(lessonIDs)),
		zap.Int("students", len(students)),
	)

	return len(lessonIDs), nil
}

// CancelLesson помечает занятие отменённым. Отметки занятия остаются,
// но оно больше не участвует в выборках будущих занятий и горизонте.
func (s *ScheduleService) CancelLesson(ctx context.Context, lessonID int64) error {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return fmt.Errorf("lesson %d: %w", lessonID, ledger.ErrNotFound)
	}

	if err := s.lessonRepo.Cancel(ctx, lessonID); err != nil {
		return fmt.Errorf("cancel lesson: %w", err)
	}

	s.logger.Info("Lesson cancelled",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("group_id", lesson.GroupID),
		zap.Time("date", lesson.Date),
	)

	return nil
}

// GetGroups возвращает все группы
func (s *ScheduleService) GetGroups(ctx context.Context) ([]*model.Group, error) {
	return s.groupRepo.GetAll(ctx)
}

// GetNearestLesson возвращает ближайшее занятие группы начиная с сегодня
func (s *ScheduleService) GetNearestLesson(ctx context.Context, groupID int64) (*model.Lesson, error) {
	return s.lessonRepo.GetNearestByGroup(ctx, groupID, Today(s.clock))
}

// EnsureAllGroupsHorizon поддерживает горизонт занятий для всех групп
func (s *ScheduleService) EnsureAllGroupsHorizon(ctx context.Context, horizon int) error {
	groups, err := s.groupRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("get all groups: %w", err)
	}

	total := 0
	for _, group := range groups {
		created, err := s.EnsureLessonHorizon(ctx, group.ID, horizon)
		if err != nil {
			s.logger.Error("Failed to extend lesson horizon",
				zap.Int64("group_id", group.ID),
				zap.Error(err))
			continue
		}
		total += created
	}

	s.logger.Info("Lesson horizon maintenance finished",
		zap.Int("groups", len(groups)),
		zap.Int("lessons_created", total),
	)

	return nil
}
