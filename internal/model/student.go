package model

import "time"

type StudentStatus string

const (
	StudentStatusRegular StudentStatus = "regular" // Обычный ученик, списания по балансу
	StudentStatusTrial   StudentStatus = "trial"   // Пробный ученик, финансовый учёт не ведётся
)

type Student struct {
	ID        int64         `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Status    StudentStatus `json:"status"`
	Coins     int           `json:"coins"` // Игровая валюта за посещения
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FullName возвращает полное имя ученика
func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
