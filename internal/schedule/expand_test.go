package schedule_test

import (
	"testing"
	"time"

	"github.com/selfdestroying/eduda-sub001/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestExpand(t *testing.T) {
	// Понедельник
	start := date(2026, time.August, 31)

	slots := []schedule.Slot{
		{Weekday: time.Monday, Time: "16:00"},
		{Weekday: time.Thursday, Time: "18:30"},
	}

	occurrences := schedule.Expand(start, slots, 4)

	require.Len(t, occurrences, 4)
	assert.Equal(t, date(2026, time.August, 31), occurrences[0].Date)
	assert.Equal(t, "16:00", occurrences[0].Time)
	assert.Equal(t, date(2026, time.September, 3), occurrences[1].Date)
	assert.Equal(t, "18:30", occurrences[1].Time)
	assert.Equal(t, date(2026, time.September, 7), occurrences[2].Date)
	assert.Equal(t, date(2026, time.September, 10), occurrences[3].Date)
}

// TestExpandDeterminism одинаковые аргументы дают одинаковый результат
func TestExpandDeterminism(t *testing.T) {
	start := date(2026, time.March, 15)
	slots := []schedule.Slot{{Weekday: time.Friday, Time: "10:00"}}

	first := schedule.Expand(start, slots, 10)
	second := schedule.Expand(start, slots, 10)

	assert.Equal(t, first, second)
}

// TestExpandProperties длина не превышает target, каждый день недели
// из слотов, даты строго возрастают
func TestExpandProperties(t *testing.T) {
	start := date(2026, time.January, 1)
	slots := []schedule.Slot{
		{Weekday: time.Tuesday, Time: "12:00"},
		{Weekday: time.Saturday, Time: "09:00"},
	}

	allowed := map[time.Weekday]bool{time.Tuesday: true, time.Saturday: true}

	occurrences := schedule.Expand(start, slots, 16)

	assert.LessOrEqual(t, len(occurrences), 16)
	for i, occ := range occurrences {
		assert.True(t, allowed[occ.Date.Weekday()], "unexpected weekday %v", occ.Date.Weekday())
		if i > 0 {
			assert.True(t, occ.Date.After(occurrences[i-1].Date))
		}
	}
}

func TestExpandStartInclusive(t *testing.T) {
	// Суббота, слот в субботу — первое занятие в день старта
	start := date(2026, time.February, 7)
	occurrences := schedule.Expand(start, []schedule.Slot{{Weekday: time.Saturday, Time: "11:00"}}, 1)

	require.Len(t, occurrences, 1)
	assert.Equal(t, start, occurrences[0].Date)
}

func TestExpandEmpty(t *testing.T) {
	start := date(2026, time.February, 7)

	assert.Nil(t, schedule.Expand(start, nil, 5))
	assert.Nil(t, schedule.Expand(start, []schedule.Slot{{Weekday: time.Monday, Time: "10:00"}}, 0))
}

// TestExpandOnePerDay два слота на один день недели дают одно занятие в день
func TestExpandOnePerDay(t *testing.T) {
	start := date(2026, time.June, 1) // понедельник
	slots := []schedule.Slot{
		{Weekday: time.Monday, Time: "10:00"},
		{Weekday: time.Monday, Time: "15:00"},
	}

	occurrences := schedule.Expand(start, slots, 3)

	require.Len(t, occurrences, 3)
	seen := map[string]bool{}
	for _, occ := range occurrences {
		key := occ.Date.Format("2006-01-02")
		assert.False(t, seen[key], "duplicate occurrence on %s", key)
		seen[key] = true
		// Побеждает первый слот в списке
		assert.Equal(t, "10:00", occ.Time)
	}
}

func TestNextAnchor(t *testing.T) {
	tests := []struct {
		name    string
		today   time.Time
		weekday time.Weekday
		want    time.Time
	}{
		{
			name:    "later this week",
			today:   date(2026, time.August, 31), // понедельник
			weekday: time.Thursday,
			want:    date(2026, time.September, 3),
		},
		{
			name:    "same weekday jumps a week ahead",
			today:   date(2026, time.August, 31),
			weekday: time.Monday,
			want:    date(2026, time.September, 7),
		},
		{
			name:    "earlier weekday wraps to next week",
			today:   date(2026, time.August, 27), // четверг
			weekday: time.Tuesday,
			want:    date(2026, time.September, 1),
		},
		{
			name:    "year boundary",
			today:   date(2026, time.December, 30), // среда
			weekday: time.Friday,
			want:    date(2027, time.January, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schedule.NextAnchor(tt.today, tt.weekday)
			assert.Equal(t, tt.want, got)
			// Якорь строго после today
			assert.True(t, got.After(tt.today))
		})
	}
}

func TestRestamp(t *testing.T) {
	anchor := date(2026, time.September, 1)

	dates := schedule.Restamp(anchor, 3)

	require.Len(t, dates, 3)
	assert.Equal(t, anchor, dates[0])
	assert.Equal(t, date(2026, time.September, 8), dates[1])
	assert.Equal(t, date(2026, time.September, 15), dates[2])
}
