package service

import (
	"testing"
	"time"

	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketLabel(t *testing.T) {
	tests := []struct {
		name   string
		date   time.Time
		bucket ReportBucket
		want   string
	}{
		{"месяц", date(2026, time.August, 15), BucketMonth, "2026-08"},
		{"месяц с ведущим нулём", date(2026, time.January, 3), BucketMonth, "2026-01"},
		{"ISO-неделя", date(2026, time.August, 24), BucketWeek, "2026-W35"},
		// Воскресенье относится к той же ISO-неделе что и понедельник
		{"воскресенье конец недели", date(2026, time.August, 30), BucketWeek, "2026-W35"},
		{"следующий понедельник", date(2026, time.August, 31), BucketWeek, "2026-W36"},
		// 1 января 2027 — пятница, ISO относит её к последней неделе 2026
		{"граница года по ISO", date(2027, time.January, 1), BucketWeek, "2026-W53"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BucketLabel(tc.date, tc.bucket))
		})
	}
}

func TestPerLessonRate(t *testing.T) {
	rate := perLessonRate(decimal.NewFromInt(9000), 12)
	assert.True(t, rate.Equal(decimal.NewFromInt(750)), "rate = %s", rate)

	// Без списаний стоимость занятия неизвестна: ноль, не деление на ноль
	zero := perLessonRate(decimal.NewFromInt(9000), 0)
	assert.True(t, zero.IsZero())
}

func TestAggregateAbsences(t *testing.T) {
	present := model.AttendanceStatusPresent
	unspecified := model.AttendanceStatusUnspecified

	rows := []*repository.AbsenceRow{
		// Неделя 35: два пропуска, один закрыт отработкой
		{Date: date(2026, time.August, 25), StudentID: 1, GroupID: 5, TotalPayments: decimal.NewFromInt(8000), TotalLessons: 8, MakeUpStatus: &present},
		{Date: date(2026, time.August, 27), StudentID: 2, GroupID: 5, TotalPayments: decimal.NewFromInt(6000), TotalLessons: 4},
		// Неделя 36: отработка назначена, но ещё не отработана — деньги потеряны
		{Date: date(2026, time.September, 1), StudentID: 1, GroupID: 5, TotalPayments: decimal.NewFromInt(8000), TotalLessons: 8, MakeUpStatus: &unspecified},
	}

	stats := AggregateAbsences(rows, BucketWeek)
	require.Len(t, stats, 2)

	week35 := stats[0]
	assert.Equal(t, "2026-W35", week35.BucketLabel)
	assert.Equal(t, 2, week35.MissedCount)
	assert.Equal(t, 1, week35.SavedCount)
	// 8000/8 + 6000/4 = 1000 + 1500
	assert.True(t, week35.MissedMoney.Equal(decimal.NewFromInt(2500)), "missed = %s", week35.MissedMoney)
	assert.True(t, week35.SavedMoney.Equal(decimal.NewFromInt(1000)), "saved = %s", week35.SavedMoney)

	week36 := stats[1]
	assert.Equal(t, "2026-W36", week36.BucketLabel)
	assert.Equal(t, 1, week36.MissedCount)
	assert.Equal(t, 0, week36.SavedCount)
	assert.True(t, week36.SavedMoney.IsZero())
}

func TestAggregateAbsencesMonthly(t *testing.T) {
	rows := []*repository.AbsenceRow{
		{Date: date(2026, time.July, 30), StudentID: 1, GroupID: 5, TotalPayments: decimal.NewFromInt(3000), TotalLessons: 3},
		{Date: date(2026, time.August, 3), StudentID: 1, GroupID: 5, TotalPayments: decimal.NewFromInt(3000), TotalLessons: 3},
		{Date: date(2026, time.August, 10), StudentID: 2, GroupID: 5, TotalPayments: decimal.NewFromInt(3000), TotalLessons: 0},
	}

	stats := AggregateAbsences(rows, BucketMonth)
	require.Len(t, stats, 2)
	assert.Equal(t, "2026-07", stats[0].BucketLabel)
	assert.Equal(t, "2026-08", stats[1].BucketLabel)
	assert.Equal(t, 2, stats[1].MissedCount)
	// Членство без списаний даёт нулевую ставку и не раздувает сумму
	assert.True(t, stats[1].MissedMoney.Equal(decimal.NewFromInt(1000)), "missed = %s", stats[1].MissedMoney)
}

func TestAggregateAbsencesEmpty(t *testing.T) {
	assert.Empty(t, AggregateAbsences(nil, BucketWeek))
}
