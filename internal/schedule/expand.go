// Package schedule содержит чистую календарную математику расписания:
// разворачивание недельных слотов в даты занятий и перенос будущих
// занятий при смене дня/времени группы. Функции детерминированы и не
// обращаются к текущему времени — "сегодня" всегда передаётся снаружи.
package schedule

import "time"

// Slot недельный слот расписания группы
type Slot struct {
	Weekday time.Weekday
	Time    string // "HH:MM"
}

// Occurrence одно вычисленное занятие
type Occurrence struct {
	Date time.Time // Полночь в локации start
	Time string
}

// Expand разворачивает недельные слоты в упорядоченный список дат занятий,
// начиная с start (включительно). Возвращает не более target занятий;
// в один календарный день попадает не более одного занятия. Перебор
// ограничен target*7+7 днями: если подходящих дней не хватило, список
// будет короче target — вызывающий обязан учитывать фактическую длину.
func Expand(start time.Time, slots []Slot, target int) []Occurrence {
	if target <= 0 || len(slots) == 0 {
		return nil
	}

	day := truncateToDay(start)
	maxDays := target*7 + 7

	occurrences := make([]Occurrence, 0, target)
	for i := 0; i < maxDays && len(occurrences) < target; i++ {
		date := day.AddDate(0, 0, i)
		for _, slot := range slots {
			if date.Weekday() == slot.Weekday {
				occurrences = append(occurrences, Occurrence{Date: date, Time: slot.Time})
				break // не более одного занятия в день
			}
		}
	}

	return occurrences
}

// NextAnchor возвращает первую дату указанного дня недели строго после today
func NextAnchor(today time.Time, weekday time.Weekday) time.Time {
	day := truncateToDay(today)
	offset := (int(weekday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

// Restamp возвращает n дат с шагом в 7 дней начиная с anchor.
// Используется при переносе будущих занятий: их количество и порядок
// сохраняются, меняются только даты.
func Restamp(anchor time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, anchor.AddDate(0, 0, i*7))
	}
	return dates
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
