package model

import "time"

type LessonStatus string

const (
	LessonStatusActive    LessonStatus = "active"    // Занятие состоится
	LessonStatusCancelled LessonStatus = "cancelled" // Занятие отменено
)

// Lesson представляет одно занятие группы в конкретную дату
type Lesson struct {
	ID        int64        `json:"id"`
	GroupID   int64        `json:"group_id"`
	Date      time.Time    `json:"date"` // Календарная дата занятия (без времени)
	Time      string       `json:"time"` // "HH:MM"
	Status    LessonStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Group *Group `json:"group,omitempty"`
}
