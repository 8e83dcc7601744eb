package model

import (
	"time"

	"github.com/google/uuid"
)

type BalanceChangeReason string

const (
	ReasonAttendanceReverted      BalanceChangeReason = "ATTENDANCE_REVERTED"       // Списание отменено, занятие возвращено на баланс
	ReasonMakeUpAttendedCharged   BalanceChangeReason = "MAKEUP_ATTENDED_CHARGED"   // Списание за отработку
	ReasonAttendancePresentCharged BalanceChangeReason = "ATTENDANCE_PRESENT_CHARGED" // Списание за посещение
	ReasonAttendanceAbsentCharged BalanceChangeReason = "ATTENDANCE_ABSENT_CHARGED" // Списание за пропуск без предупреждения
)

// BalanceHistoryMeta структурированный контекст изменения баланса,
// хранится в jsonb рядом с проводкой
type BalanceHistoryMeta struct {
	AttendanceID int64            `json:"attendance_id"`
	LessonID     int64            `json:"lesson_id"`
	OldStatus    AttendanceStatus `json:"old_status"`
	NewStatus    AttendanceStatus `json:"new_status"`
	OldIsWarned  *bool            `json:"old_is_warned"`
	NewIsWarned  *bool            `json:"new_is_warned"`
	IsMakeUp     bool             `json:"is_makeup"`
}

// LessonsBalanceHistory запись аудита изменения баланса занятий.
// Таблица append-only: записи никогда не изменяются и не удаляются,
// это единственный источник правды о том почему баланс изменился.
type LessonsBalanceHistory struct {
	ID            uuid.UUID           `json:"id"`
	ActorUserID   int64               `json:"actor_user_id"` // Кто проставил отметку
	StudentID     int64               `json:"student_id"`
	GroupID       int64               `json:"group_id"`
	Delta         int                 `json:"delta"`
	BalanceBefore int                 `json:"balance_before"`
	BalanceAfter  int                 `json:"balance_after"`
	Reason        BalanceChangeReason `json:"reason"`
	Meta          BalanceHistoryMeta  `json:"meta"`
	CreatedAt     time.Time           `json:"created_at"`
}
