package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
)

type StudentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create создаёт нового ученика
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	query := `
		INSERT INTO students (first_name, last_name, status)
		VALUES ($1, $2, $3)
		RETURNING id, coins, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, s.FirstName, s.LastName, s.Status).Scan(
		&s.ID,
		&s.Coins,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `
		SELECT id, first_name, last_name, status, coins, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	var s model.Student
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.FirstName,
		&s.LastName,
		&s.Status,
		&s.Coins,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return &s, nil
}

// AddCoins изменяет счётчик монет ученика на delta (может быть отрицательной)
func (r *StudentRepository) AddCoins(ctx context.Context, tx pgx.Tx, id int64, delta int) error {
	query := `
		UPDATE students
		SET coins = coins + $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := tx.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("add coins: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student not found")
	}

	return nil
}

// GetByGroup получает всех учеников группы
func (r *StudentRepository) GetByGroup(ctx context.Context, groupID int64) ([]*model.Student, error) {
	query := `
		SELECT s.id, s.first_name, s.last_name, s.status, s.coins, s.created_at, s.updated_at
		FROM students s
		JOIN student_groups sg ON sg.student_id = s.id
		WHERE sg.group_id = $1
		ORDER BY s.last_name, s.first_name
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get students by group: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		var s model.Student
		err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Status, &s.Coins, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, &s)
	}

	return students, rows.Err()
}
