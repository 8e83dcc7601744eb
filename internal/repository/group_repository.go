package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create создаёт новую группу
func (r *GroupRepository) Create(ctx context.Context, tx pgx.Tx, g *model.Group) error {
	query := `
		INSERT INTO groups (name, weekday, lesson_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query, g.Name, g.Weekday, g.LessonTime).Scan(
		&g.ID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	return nil
}

// GetByID получает группу по ID
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	query := `
		SELECT id, name, weekday, lesson_time, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	var g model.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Weekday,
		&g.LessonTime,
		&g.CreatedAt,
		&g.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}

	return &g, nil
}

// GetAll получает все группы
func (r *GroupRepository) GetAll(ctx context.Context) ([]*model.Group, error) {
	query := `
		SELECT id, name, weekday, lesson_time, created_at, updated_at
		FROM groups
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		var g model.Group
		err := rows.Scan(&g.ID, &g.Name, &g.Weekday, &g.LessonTime, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &g)
	}

	return groups, rows.Err()
}

// UpdateSchedule обновляет основной день недели и время группы
func (r *GroupRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, id int64, weekday int, lessonTime string) error {
	query := `
		UPDATE groups
		SET weekday = $1, lesson_time = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, weekday, lessonTime, id)
	if err != nil {
		return fmt.Errorf("update group schedule: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}
