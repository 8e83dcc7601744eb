package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StudentGroup представляет членство ученика в группе вместе с его
// финансовым суб-балансом. lessons_balance меняется только через
// проводки журнала (LedgerService), каждое ненулевое изменение
// сопровождается ровно одной записью в истории в той же транзакции.
type StudentGroup struct {
	ID             int64           `json:"id"`
	StudentID      int64           `json:"student_id"`
	GroupID        int64           `json:"group_id"`
	LessonsBalance int             `json:"lessons_balance"` // Остаток оплаченных занятий (может быть отрицательным)
	TotalLessons   int             `json:"total_lessons"`   // Всего списанных занятий за всё время
	TotalPayments  decimal.Decimal `json:"total_payments"`  // Сумма оплат по этой группе
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Student *Student `json:"student,omitempty"`
	Group   *Group   `json:"group,omitempty"`
}

// PerLessonRate возвращает стоимость одного занятия по этому членству:
// total_payments / total_lessons, ноль если списаний ещё не было.
func (sg *StudentGroup) PerLessonRate() decimal.Decimal {
	if sg.TotalLessons == 0 {
		return decimal.Zero
	}
	return sg.TotalPayments.Div(decimal.NewFromInt(int64(sg.TotalLessons)))
}
