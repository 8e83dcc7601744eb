package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
	"github.com/shopspring/decimal"
)

type StudentGroupRepository struct {
	pool *pgxpool.Pool
}

func NewStudentGroupRepository(pool *pgxpool.Pool) *StudentGroupRepository {
	return &StudentGroupRepository{pool: pool}
}

// Create создаёт членство ученика в группе с нулевым балансом
func (r *StudentGroupRepository) Create(ctx context.Context, tx pgx.Tx, sg *model.StudentGroup) error {
	query := `
		INSERT INTO student_groups (student_id, group_id)
		VALUES ($1, $2)
		RETURNING id, lessons_balance, total_lessons, total_payments, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query, sg.StudentID, sg.GroupID).Scan(
		&sg.ID,
		&sg.LessonsBalance,
		&sg.TotalLessons,
		&sg.TotalPayments,
		&sg.CreatedAt,
		&sg.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("create student group: %w", err)
	}

	return nil
}

// GetByStudentAndGroup получает членство по паре (ученик, группа)
func (r *StudentGroupRepository) GetByStudentAndGroup(ctx context.Context, studentID, groupID int64) (*model.StudentGroup, error) {
	return r.get(ctx, r.pool, studentID, groupID, false)
}

// GetForUpdate получает членство внутри транзакции с блокировкой строки.
// Блокировка на student_groups — единственная точка сериализации
// конкурентных правок баланса одной пары (ученик, группа); правки
// разных членств друг друга не ждут.
func (r *StudentGroupRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (*model.StudentGroup, error) {
	return r.get(ctx, tx, studentID, groupID, true)
}

func (r *StudentGroupRepository) get(ctx context.Context, q base.Querier, studentID, groupID int64, forUpdate bool) (*model.StudentGroup, error) {
	query := `
		SELECT id, student_id, group_id, lessons_balance, total_lessons, total_payments, created_at, updated_at
		FROM student_groups
		WHERE student_id = $1 AND group_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var sg model.StudentGroup
	err := q.QueryRow(ctx, query, studentID, groupID).Scan(
		&sg.ID,
		&sg.StudentID,
		&sg.GroupID,
		&sg.LessonsBalance,
		&sg.TotalLessons,
		&sg.TotalPayments,
		&sg.CreatedAt,
		&sg.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student group: %w", err)
	}

	return &sg, nil
}

// ApplyDelta применяет проводку к балансу членства. totalDelta двигает
// счётчик списанных занятий: +1 при новом списании, -1 при отмене.
func (r *StudentGroupRepository) ApplyDelta(ctx context.Context, tx pgx.Tx, id int64, delta, totalDelta int) error {
	query := `
		UPDATE student_groups
		SET lessons_balance = lessons_balance + $1,
		    total_lessons = total_lessons + $2,
		    updated_at = now()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, delta, totalDelta, id)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student group not found")
	}

	return nil
}

// AddPayment пополняет баланс занятий и сумму оплат членства
func (r *StudentGroupRepository) AddPayment(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal, lessonsPaid int) error {
	query := `
		UPDATE student_groups
		SET lessons_balance = lessons_balance + $1,
		    total_payments = total_payments + $2,
		    updated_at = now()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, lessonsPaid, amount, id)
	if err != nil {
		return fmt.Errorf("add payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student group not found")
	}

	return nil
}

// GetByStudent получает все членства ученика вместе с группами
func (r *StudentGroupRepository) GetByStudent(ctx context.Context, studentID int64) ([]*model.StudentGroup, error) {
	query := `
		SELECT sg.id, sg.student_id, sg.group_id, sg.lessons_balance, sg.total_lessons, sg.total_payments,
		       g.id, g.name, g.weekday, g.lesson_time
		FROM student_groups sg
		JOIN groups g ON g.id = sg.group_id
		WHERE sg.student_id = $1
		ORDER BY g.name
	`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student groups by student: %w", err)
	}
	defer rows.Close()

	var memberships []*model.StudentGroup
	for rows.Next() {
		var sg model.StudentGroup
		var g model.Group
		err := rows.Scan(
			&sg.ID,
			&sg.StudentID,
			&sg.GroupID,
			&sg.LessonsBalance,
			&sg.TotalLessons,
			&sg.TotalPayments,
			&g.ID,
			&g.Name,
			&g.Weekday,
			&g.LessonTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student group: %w", err)
		}
		sg.Group = &g
		memberships = append(memberships, &sg)
	}

	return memberships, rows.Err()
}
