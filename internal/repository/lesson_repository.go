package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
	"github.com/selfdestroying/eduda-sub001/internal/schedule"
)

type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

// CreateBatch создаёт занятия группы по списку вычисленных дат и
// возвращает их ID в порядке дат
func (r *LessonRepository) CreateBatch(ctx context.Context, tx pgx.Tx, groupID int64, occurrences []schedule.Occurrence) ([]int64, error) {
	ids := make([]int64, 0, len(occurrences))

	query := `
		INSERT INTO lessons (group_id, date, time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for _, occ := range occurrences {
		var id int64
		err := tx.QueryRow(ctx, query, groupID, occ.Date, occ.Time, model.LessonStatusActive).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("create lesson: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// GetByID получает занятие по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `
		SELECT id, group_id, date, time, status, created_at, updated_at
		FROM lessons
		WHERE id = $1
	`

	var l model.Lesson
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.GroupID,
		&l.Date,
		&l.Time,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return &l, nil
}

// GetFutureByGroup получает будущие (дата >= cutoff) активные занятия
// группы в порядке дат, блокируя строки на время транзакции переноса
func (r *LessonRepository) GetFutureByGroup(ctx context.Context, tx pgx.Tx, groupID int64, cutoff time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT id, group_id, date, time, status, created_at, updated_at
		FROM lessons
		WHERE group_id = $1 AND date >= $2 AND status = $3
		ORDER BY date
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, groupID, cutoff, model.LessonStatusActive)
	if err != nil {
		return nil, fmt.Errorf("get future lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		var l model.Lesson
		err := rows.Scan(&l.ID, &l.GroupID, &l.Date, &l.Time, &l.Status, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, &l)
	}

	return lessons, rows.Err()
}

// Restamp переносит занятие на новую дату и время. Количество и порядок
// занятий при переносе расписания не меняются — только даты.
func (r *LessonRepository) Restamp(ctx context.Context, tx pgx.Tx, id int64, date time.Time, lessonTime string) error {
	query := `
		UPDATE lessons
		SET date = $1, time = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, date, lessonTime, id)
	if err != nil {
		return fmt.Errorf("restamp lesson: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lesson not found")
	}

	return nil
}

// GetIDsByGroupFrom получает ID активных занятий группы с датой cutoff и
// позже. Используется при зачислении ученика для создания заготовок отметок.
func (r *LessonRepository) GetIDsByGroupFrom(ctx context.Context, q base.Querier, groupID int64, cutoff time.Time) ([]int64, error) {
	if q == nil {
		q = r.pool
	}

	query := `
		SELECT id
		FROM lessons
		WHERE group_id = $1 AND date >= $2 AND status = $3
		ORDER BY date
	`

	rows, err := q.Query(ctx, query, groupID, cutoff, model.LessonStatusActive)
	if err != nil {
		return nil, fmt.Errorf("get lesson ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountFutureByGroup считает будущие активные занятия группы
func (r *LessonRepository) CountFutureByGroup(ctx context.Context, groupID int64, cutoff time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM lessons
		WHERE group_id = $1 AND date >= $2 AND status = $3
	`

	var count int
	err := r.pool.QueryRow(ctx, query, groupID, cutoff, model.LessonStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count future lessons: %w", err)
	}

	return count, nil
}

// GetLastDateByGroup возвращает дату последнего занятия группы,
// nil если занятий ещё нет
func (r *LessonRepository) GetLastDateByGroup(ctx context.Context, groupID int64) (*time.Time, error) {
	query := `
		SELECT max(date)
		FROM lessons
		WHERE group_id = $1 AND status = $2
	`

	var last *time.Time
	err := r.pool.QueryRow(ctx, query, groupID, model.LessonStatusActive).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("get last lesson date: %w", err)
	}

	return last, nil
}

// GetNearestByGroup получает ближайшее активное занятие группы с датой
// from и позже
func (r *LessonRepository) GetNearestByGroup(ctx context.Context, groupID int64, from time.Time) (*model.Lesson, error) {
	query := `
		SELECT id, group_id, date, time, status, created_at, updated_at
		FROM lessons
		WHERE group_id = $1 AND date >= $2 AND status = $3
		ORDER BY date
		LIMIT 1
	`

	var l model.Lesson
	err := r.pool.QueryRow(ctx, query, groupID, from, model.LessonStatusActive).Scan(
		&l.ID,
		&l.GroupID,
		&l.Date,
		&l.Time,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get nearest lesson: %w", err)
	}

	return &l, nil
}

// Cancel помечает занятие отменённым
func (r *LessonRepository) Cancel(ctx context.Context, id int64) error {
	query := `
		UPDATE lessons
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := r.pool.Exec(ctx, query, model.LessonStatusCancelled, id)
	if err != nil {
		return fmt.Errorf("cancel lesson: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lesson not found")
	}

	return nil
}
