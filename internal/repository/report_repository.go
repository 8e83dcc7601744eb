package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/shopspring/decimal"
)

// ReportRepository репозиторий отчётных выборок. Только чтение:
// ни один метод не изменяет данные.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// AbsenceRow один пропуск вместе с финансовым контекстом членства и
// статусом отработки (если связь есть)
type AbsenceRow struct {
	Date          time.Time
	StudentID     int64
	GroupID       int64
	TotalPayments decimal.Decimal
	TotalLessons  int
	MakeUpStatus  *model.AttendanceStatus // nil = отработка не назначена
}

// GetAbsences выбирает пропуски (ABSENT) обычных учеников за период
// [from, to) вместе с данными для расчёта денежного эквивалента.
// Членство может отсутствовать (ученик уже покинул группу) — тогда
// total_payments/total_lessons нулевые и ставка считается неопределённой.
func (r *ReportRepository) GetAbsences(ctx context.Context, from, to time.Time) ([]*AbsenceRow, error) {
	query := `
		SELECT l.date, a.student_id, l.group_id,
		       COALESCE(sg.total_payments, 0), COALESCE(sg.total_lessons, 0),
		       ma.status
		FROM attendances a
		JOIN lessons l ON l.id = a.lesson_id
		LEFT JOIN student_groups sg ON sg.student_id = a.student_id AND sg.group_id = l.group_id
		LEFT JOIN makeups m ON m.missed_attendance_id = a.id
		LEFT JOIN attendances ma ON ma.id = m.makeup_attendance_id
		WHERE a.status = $1
		  AND a.student_status = $2
		  AND l.date >= $3 AND l.date < $4
		ORDER BY l.date
	`

	rows, err := r.pool.Query(ctx, query,
		model.AttendanceStatusAbsent, model.StudentStatusRegular, from, to)
	if err != nil {
		return nil, fmt.Errorf("get absences: %w", err)
	}
	defer rows.Close()

	var result []*AbsenceRow
	for rows.Next() {
		var row AbsenceRow
		err := rows.Scan(
			&row.Date,
			&row.StudentID,
			&row.GroupID,
			&row.TotalPayments,
			&row.TotalLessons,
			&row.MakeUpStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("scan absence row: %w", err)
		}
		result = append(result, &row)
	}

	return result, rows.Err()
}

// LastSeenRow последняя проставленная отметка ученика за период
type LastSeenRow struct {
	StudentID  int64
	LastDate   time.Time
	LastStatus model.AttendanceStatus
}

// GetLastSeen выбирает для каждого обычного ученика его последнюю
// проставленную (не UNSPECIFIED) отметку за период [from, to).
// Используется статистикой оттока: ученик чья последняя отметка —
// пропуск и после которой отметок нет, считается потерянным.
func (r *ReportRepository) GetLastSeen(ctx context.Context, from, to time.Time) ([]*LastSeenRow, error) {
	query := `
		SELECT DISTINCT ON (a.student_id) a.student_id, l.date, a.status
		FROM attendances a
		JOIN lessons l ON l.id = a.lesson_id
		WHERE a.status <> $1
		  AND a.student_status = $2
		  AND l.date >= $3 AND l.date < $4
		ORDER BY a.student_id, l.date DESC
	`

	rows, err := r.pool.Query(ctx, query,
		model.AttendanceStatusUnspecified, model.StudentStatusRegular, from, to)
	if err != nil {
		return nil, fmt.Errorf("get last seen: %w", err)
	}
	defer rows.Close()

	var result []*LastSeenRow
	for rows.Next() {
		var row LastSeenRow
		if err := rows.Scan(&row.StudentID, &row.LastDate, &row.LastStatus); err != nil {
			return nil, fmt.Errorf("scan last seen row: %w", err)
		}
		result = append(result, &row)
	}

	return result, rows.Err()
}
