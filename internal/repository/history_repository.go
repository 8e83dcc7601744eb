package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
)

// HistoryRepository репозиторий истории изменений баланса занятий.
// Таблица append-only: есть вставка и чтение, Update и Delete
// отсутствуют намеренно.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Create добавляет проводку в историю
func (r *HistoryRepository) Create(ctx context.Context, tx pgx.Tx, h *model.LessonsBalanceHistory) error {
	meta, err := json.Marshal(h.Meta)
	if err != nil {
		return fmt.Errorf("marshal history meta: %w", err)
	}

	query := `
		INSERT INTO lessons_balance_history
			(id, actor_user_id, student_id, group_id, delta, balance_before, balance_after, reason, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = tx.QueryRow(
		ctx, query,
		h.ID,
		h.ActorUserID,
		h.StudentID,
		h.GroupID,
		h.Delta,
		h.BalanceBefore,
		h.BalanceAfter,
		h.Reason,
		meta,
	).Scan(&h.CreatedAt)

	if err != nil {
		return fmt.Errorf("create balance history: %w", err)
	}

	return nil
}

// ExistsForStudentGroup проверяет есть ли у пары (ученик, группа) хотя бы
// одна проводка. Используется для проверки инварианта пробного ученика:
// у trial-ученика проводок быть не может.
func (r *HistoryRepository) ExistsForStudentGroup(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM lessons_balance_history
			WHERE student_id = $1 AND group_id = $2
		)
	`

	var exists bool
	err := tx.QueryRow(ctx, query, studentID, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check history existence: %w", err)
	}

	return exists, nil
}

// GetByStudentAndGroup получает последние проводки пары (ученик, группа)
func (r *HistoryRepository) GetByStudentAndGroup(ctx context.Context, studentID, groupID int64, limit int) ([]*model.LessonsBalanceHistory, error) {
	query := `
		SELECT id, actor_user_id, student_id, group_id, delta, balance_before, balance_after, reason, meta, created_at
		FROM lessons_balance_history
		WHERE student_id = $1 AND group_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, studentID, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("get balance history: %w", err)
	}
	defer rows.Close()

	var entries []*model.LessonsBalanceHistory
	for rows.Next() {
		var h model.LessonsBalanceHistory
		var meta []byte
		err := rows.Scan(
			&h.ID,
			&h.ActorUserID,
			&h.StudentID,
			&h.GroupID,
			&h.Delta,
			&h.BalanceBefore,
			&h.BalanceAfter,
			&h.Reason,
			&meta,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance history: %w", err)
		}
		if err := json.Unmarshal(meta, &h.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal history meta: %w", err)
		}
		entries = append(entries, &h)
	}

	return entries, rows.Err()
}
