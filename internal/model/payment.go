package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment оплата по членству ученика в группе. Пополняет lessons_balance
// и total_payments, но не проходит через журнал посещаемости —
// биллинг и списания за занятия учитываются раздельно.
type Payment struct {
	ID             int64           `json:"id"`
	StudentGroupID int64           `json:"student_group_id"`
	ActorUserID    int64           `json:"actor_user_id"`
	Amount         decimal.Decimal `json:"amount"`
	LessonsPaid    int             `json:"lessons_paid"` // Сколько занятий добавить на баланс
	CreatedAt      time.Time       `json:"created_at"`
}
