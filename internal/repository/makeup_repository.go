package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
)

type MakeUpRepository struct {
	pool *pgxpool.Pool
}

func NewMakeUpRepository(pool *pgxpool.Pool) *MakeUpRepository {
	return &MakeUpRepository{pool: pool}
}

// Create создаёт связь отработки. Уникальные индексы на обеих колонках
// страхуют от двойной привязки при гонке параллельных запросов.
func (r *MakeUpRepository) Create(ctx context.Context, tx pgx.Tx, m *model.MakeUp) error {
	query := `
		INSERT INTO makeups (missed_attendance_id, makeup_attendance_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, m.MissedAttendanceID, m.MakeUpAttendanceID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create makeup link: %w", err)
	}

	return nil
}

// GetByMissed получает связь по пропущенной отметке
func (r *MakeUpRepository) GetByMissed(ctx context.Context, q base.Querier, missedAttendanceID int64) (*model.MakeUp, error) {
	query := `
		SELECT id, missed_attendance_id, makeup_attendance_id, created_at
		FROM makeups
		WHERE missed_attendance_id = $1
	`
	return r.getOne(ctx, q, query, missedAttendanceID)
}

// GetByMakeUp получает связь по отметке-отработке (входящая связь)
func (r *MakeUpRepository) GetByMakeUp(ctx context.Context, q base.Querier, makeupAttendanceID int64) (*model.MakeUp, error) {
	query := `
		SELECT id, missed_attendance_id, makeup_attendance_id, created_at
		FROM makeups
		WHERE makeup_attendance_id = $1
	`
	return r.getOne(ctx, q, query, makeupAttendanceID)
}

func (r *MakeUpRepository) getOne(ctx context.Context, q base.Querier, query string, arg int64) (*model.MakeUp, error) {
	if q == nil {
		q = r.pool
	}

	var m model.MakeUp
	err := q.QueryRow(ctx, query, arg).Scan(
		&m.ID,
		&m.MissedAttendanceID,
		&m.MakeUpAttendanceID,
		&m.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get makeup link: %w", err)
	}

	return &m, nil
}

// DeleteByMissed удаляет связь отработки по пропущенной отметке
func (r *MakeUpRepository) DeleteByMissed(ctx context.Context, missedAttendanceID int64) (int64, error) {
	query := `
		DELETE FROM makeups
		WHERE missed_attendance_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, missedAttendanceID)
	if err != nil {
		return 0, fmt.Errorf("delete makeup link: %w", err)
	}

	return tag.RowsAffected(), nil
}
