package model

import "time"

type AttendanceStatus string

const (
	AttendanceStatusUnspecified AttendanceStatus = "UNSPECIFIED" // Отметка ещё не проставлена
	AttendanceStatusPresent     AttendanceStatus = "PRESENT"     // Ученик присутствовал
	AttendanceStatusAbsent      AttendanceStatus = "ABSENT"      // Ученик отсутствовал
)

// Valid проверяет что статус является одним из поддерживаемых значений
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusUnspecified, AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Attendance представляет отметку посещаемости ученика на занятии.
// На пару (student_id, lesson_id) существует не более одной записи.
type Attendance struct {
	ID            int64            `json:"id"`
	StudentID     int64            `json:"student_id"`
	LessonID      int64            `json:"lesson_id"`
	Status        AttendanceStatus `json:"status"`
	IsWarned      *bool            `json:"is_warned"` // nil = не указано
	Comment       *string          `json:"comment"`
	StudentStatus StudentStatus    `json:"student_status"` // Копия статуса ученика на момент создания
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Lesson  *Lesson  `json:"lesson,omitempty"`
	Student *Student `json:"student,omitempty"`
}
