// Package ledger содержит чистую бизнес-логику журнала посещаемости:
// предикат списания, расчёт дельты баланса, классификацию причины и
// правило начисления монет. Никакой работы с БД — транзакционная
// обвязка живёт в service.LedgerService.
package ledger

import "github.com/selfdestroying/eduda-sub001/internal/model"

// CoinsPerVisit сколько монет начисляется за посещение занятия
const CoinsPerVisit = 10

// State статус отметки вместе с флагом предупреждения о пропуске
type State struct {
	Status   model.AttendanceStatus
	IsWarned *bool // nil = не указано
}

// Transition результат расчёта перехода между состояниями отметки
type Transition struct {
	Delta     int                       // Изменение lessons_balance: -1, 0 или +1
	Reason    model.BalanceChangeReason // Пустая строка если Delta == 0
	CoinDelta int                       // Изменение монет ученика: -10, 0 или +10
}

// IsCharged определяет списывается ли занятие с баланса:
//   - PRESENT — всегда списывается;
//   - ABSENT без предупреждения — списывается (пропуск сгорает);
//   - ABSENT с предупреждением — не списывается;
//   - UNSPECIFIED — не списывается.
func IsCharged(status model.AttendanceStatus, isWarned *bool) bool {
	switch status {
	case model.AttendanceStatusPresent:
		return true
	case model.AttendanceStatusAbsent:
		return isWarned == nil || !*isWarned
	default:
		return false
	}
}

// ComputeTransition рассчитывает проводку для перехода old -> new.
// isMakeUp — является ли отметка отработкой (есть входящая связь make-up),
// влияет только на классификацию причины списания.
func ComputeTransition(old, new State, isMakeUp bool) Transition {
	wasCharged := IsCharged(old.Status, old.IsWarned)
	nowCharged := IsCharged(new.Status, new.IsWarned)

	var t Transition

	switch {
	case wasCharged == nowCharged:
		// Ничего не меняется, проводка не нужна
	case nowCharged:
		t.Delta = -1
		t.Reason = chargeReason(new.Status, isMakeUp)
	default:
		t.Delta = +1
		t.Reason = model.ReasonAttendanceReverted
	}

	t.CoinDelta = coinDelta(old.Status, new.Status)

	return t
}

// chargeReason классифицирует причину списания (Delta < 0)
func chargeReason(newStatus model.AttendanceStatus, isMakeUp bool) model.BalanceChangeReason {
	switch {
	case isMakeUp:
		return model.ReasonMakeUpAttendedCharged
	case newStatus == model.AttendanceStatusPresent:
		return model.ReasonAttendancePresentCharged
	default:
		return model.ReasonAttendanceAbsentCharged
	}
}

// coinDelta начисляет монеты при входе в PRESENT и снимает при выходе.
// Переходы не пересекающие границу PRESENT монеты не трогают.
func coinDelta(oldStatus, newStatus model.AttendanceStatus) int {
	wasPresent := oldStatus == model.AttendanceStatusPresent
	nowPresent := newStatus == model.AttendanceStatusPresent

	switch {
	case !wasPresent && nowPresent:
		return CoinsPerVisit
	case wasPresent && !nowPresent:
		return -CoinsPerVisit
	default:
		return 0
	}
}
