package model

import "time"

// Group представляет учебную группу с основным слотом расписания
type Group struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Weekday    int       `json:"weekday"`     // 0 = Sunday, 6 = Saturday
	LessonTime string    `json:"lesson_time"` // "HH:MM"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
