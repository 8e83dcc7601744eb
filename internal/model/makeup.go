package model

import "time"

// MakeUp связывает пропущенное занятие с отработкой. Связь направленная:
// missed_attendance_id — пропуск который отрабатывают,
// makeup_attendance_id — отметка которой его отрабатывают.
// Обе стороны уникальны: у пропуска не более одной отработки,
// одна отметка закрывает не более одного пропуска.
type MakeUp struct {
	ID                 int64     `json:"id"`
	MissedAttendanceID int64     `json:"missed_attendance_id"`
	MakeUpAttendanceID int64     `json:"makeup_attendance_id"`
	CreatedAt          time.Time `json:"created_at"`
}
