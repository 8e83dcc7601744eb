package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
)

type AttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// GetByID получает отметку по ID вместе с занятием
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*model.Attendance, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate получает отметку по ID внутри транзакции, блокируя строку
// отметки (FOR UPDATE OF a) до конца транзакции. Занятие читается без
// блокировки — оно нужно только ради group_id и даты.
func (r *AttendanceRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Attendance, error) {
	return r.get(ctx, tx, id, true)
}

func (r *AttendanceRepository) get(ctx context.Context, q base.Querier, id int64, forUpdate bool) (*model.Attendance, error) {
	query := `
		SELECT a.id, a.student_id, a.lesson_id, a.status, a.is_warned, a.comment, a.student_status,
		       a.created_at, a.updated_at,
		       l.id, l.group_id, l.date, l.time, l.status
		FROM attendances a
		JOIN lessons l ON l.id = a.lesson_id
		WHERE a.id = $1
	`
	if forUpdate {
		query += " FOR UPDATE OF a"
	}

	var a model.Attendance
	var l model.Lesson
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.StudentID,
		&a.LessonID,
		&a.Status,
		&a.IsWarned,
		&a.Comment,
		&a.StudentStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
		&l.ID,
		&l.GroupID,
		&l.Date,
		&l.Time,
		&l.Status,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance by id: %w", err)
	}

	a.Lesson = &l
	return &a, nil
}

// UpdateState обновляет статус и флаг предупреждения отметки.
// Вызывается только из транзакции журнала — отметки никогда не
// меняют статус в обход проводок.
func (r *AttendanceRepository) UpdateState(ctx context.Context, tx pgx.Tx, id int64, status model.AttendanceStatus, isWarned *bool) error {
	query := `
		UPDATE attendances
		SET status = $1, is_warned = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, status, isWarned, id)
	if err != nil {
		return fmt.Errorf("update attendance state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attendance not found")
	}

	return nil
}

// UpdateComment обновляет комментарий отметки. Быстрый путь мимо журнала:
// статус и флаг не трогаются, транзакция не нужна.
func (r *AttendanceRepository) UpdateComment(ctx context.Context, id int64, comment string) (int64, error) {
	query := `
		UPDATE attendances
		SET comment = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := r.pool.Exec(ctx, query, comment, id)
	if err != nil {
		return 0, fmt.Errorf("update attendance comment: %w", err)
	}

	return tag.RowsAffected(), nil
}

// CreateBatch создаёт UNSPECIFIED-заготовки отметок для ученика на
// перечисленные занятия. Уже существующие пары (student_id, lesson_id)
// молча пропускаются за счёт уникального индекса.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, tx pgx.Tx, studentID int64, studentStatus model.StudentStatus, lessonIDs []int64) (int64, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO attendances (student_id, lesson_id, status, student_status)
		SELECT $1, unnest($2::bigint[]), $3, $4
		ON CONFLICT (student_id, lesson_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, studentID, lessonIDs, model.AttendanceStatusUnspecified, studentStatus)
	if err != nil {
		return 0, fmt.Errorf("create attendance batch: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteFutureUnspecified удаляет нетронутые (UNSPECIFIED) отметки ученика
// в группе на занятия с датой cutoff и позже. Отметки с проставленным
// статусом — неизменяемая история, они не удаляются никогда.
func (r *AttendanceRepository) DeleteFutureUnspecified(ctx context.Context, tx pgx.Tx, studentID, groupID int64, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM attendances a
		USING lessons l
		WHERE a.lesson_id = l.id
		  AND a.student_id = $1
		  AND l.group_id = $2
		  AND l.date >= $3
		  AND a.status = $4
	`

	tag, err := tx.Exec(ctx, query, studentID, groupID, cutoff, model.AttendanceStatusUnspecified)
	if err != nil {
		return 0, fmt.Errorf("delete future unspecified attendances: %w", err)
	}

	return tag.RowsAffected(), nil
}

// GetByLesson получает все отметки занятия вместе с учениками
func (r *AttendanceRepository) GetByLesson(ctx context.Context, lessonID int64) ([]*model.Attendance, error) {
	query := `
		SELECT a.id, a.student_id, a.lesson_id, a.status, a.is_warned, a.comment, a.student_status,
		       s.id, s.first_name, s.last_name, s.status, s.coins
		FROM attendances a
		JOIN students s ON s.id = a.student_id
		WHERE a.lesson_id = $1
		ORDER BY s.last_name, s.first_name
	`

	rows, err := r.pool.Query(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get attendances by lesson: %w", err)
	}
	defer rows.Close()

	var attendances []*model.Attendance
	for rows.Next() {
		var a model.Attendance
		var s model.Student
		err := rows.Scan(
			&a.ID,
			&a.StudentID,
			&a.LessonID,
			&a.Status,
			&a.IsWarned,
			&a.Comment,
			&a.StudentStatus,
			&s.ID,
			&s.FirstName,
			&s.LastName,
			&s.Status,
			&s.Coins,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		a.Student = &s
		attendances = append(attendances, &a)
	}

	return attendances, rows.Err()
}
