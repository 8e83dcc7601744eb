package service

import "time"

// Clock источник текущего времени. Сервисы не обращаются к time.Now
// напрямую: "сегодня" для отсечек будущих занятий всегда берётся из
// часов, что делает переносы расписания и чистку отметок
// детерминированно тестируемыми.
type Clock interface {
	Now() time.Time
}

// SystemClock системные часы в фиксированной временной зоне центра
type SystemClock struct {
	Location *time.Location
}

func NewSystemClock(location *time.Location) *SystemClock {
	return &SystemClock{Location: location}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

// Today возвращает начало текущего дня по часам clock
func Today(clock Clock) time.Time {
	now := clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
