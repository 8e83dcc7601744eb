package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create регистрирует оплату
func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (student_group_id, actor_user_id, amount, lessons_paid)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, p.StudentGroupID, p.ActorUserID, p.Amount, p.LessonsPaid).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByStudentGroup получает оплаты по членству в порядке убывания даты
func (r *PaymentRepository) GetByStudentGroup(ctx context.Context, studentGroupID int64) ([]*model.Payment, error) {
	query := `
		SELECT id, student_group_id, actor_user_id, amount, lessons_paid, created_at
		FROM payments
		WHERE student_group_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, studentGroupID)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		var p model.Payment
		err := rows.Scan(&p.ID, &p.StudentGroupID, &p.ActorUserID, &p.Amount, &p.LessonsPaid, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &p)
	}

	return payments, rows.Err()
}
