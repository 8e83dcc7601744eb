package ledger_test

import (
	"testing"

	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool {
	return &v
}

// warnedStates все три состояния флага предупреждения
var warnedStates = map[string]*bool{
	"unset": nil,
	"false": boolPtr(false),
	"true":  boolPtr(true),
}

var allStatuses = []model.AttendanceStatus{
	model.AttendanceStatusUnspecified,
	model.AttendanceStatusPresent,
	model.AttendanceStatusAbsent,
}

func TestIsCharged(t *testing.T) {
	tests := []struct {
		name     string
		status   model.AttendanceStatus
		isWarned *bool
		want     bool
	}{
		{"present unset", model.AttendanceStatusPresent, nil, true},
		{"present warned", model.AttendanceStatusPresent, boolPtr(true), true},
		{"present not warned", model.AttendanceStatusPresent, boolPtr(false), true},
		{"absent unset", model.AttendanceStatusAbsent, nil, true},
		{"absent not warned", model.AttendanceStatusAbsent, boolPtr(false), true},
		{"absent warned", model.AttendanceStatusAbsent, boolPtr(true), false},
		{"unspecified unset", model.AttendanceStatusUnspecified, nil, false},
		{"unspecified warned", model.AttendanceStatusUnspecified, boolPtr(true), false},
		{"unspecified not warned", model.AttendanceStatusUnspecified, boolPtr(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.IsCharged(tt.status, tt.isWarned))
		})
	}
}

// TestIsChargedTotality предикат определён для всех 3x3 комбинаций
func TestIsChargedTotality(t *testing.T) {
	count := 0
	for _, status := range allStatuses {
		for _, warned := range warnedStates {
			_ = ledger.IsCharged(status, warned)
			count++
		}
	}
	assert.Equal(t, 9, count)
}

// TestComputeTransitionDeltaInvariant дельта всегда в {-1, 0, +1} и
// согласована с изменением предиката списания
func TestComputeTransitionDeltaInvariant(t *testing.T) {
	for _, oldStatus := range allStatuses {
		for _, oldWarned := range warnedStates {
			for _, newStatus := range allStatuses {
				for _, newWarned := range warnedStates {
					oldState := ledger.State{Status: oldStatus, IsWarned: oldWarned}
					newState := ledger.State{Status: newStatus, IsWarned: newWarned}

					tr := ledger.ComputeTransition(oldState, newState, false)

					require.Contains(t, []int{-1, 0, 1}, tr.Delta)

					wasCharged := ledger.IsCharged(oldStatus, oldWarned)
					nowCharged := ledger.IsCharged(newStatus, newWarned)

					switch {
					case wasCharged == nowCharged:
						assert.Zero(t, tr.Delta)
						assert.Empty(t, tr.Reason)
					case nowCharged:
						assert.Equal(t, -1, tr.Delta)
						assert.NotEmpty(t, tr.Reason)
					default:
						assert.Equal(t, +1, tr.Delta)
						assert.Equal(t, model.ReasonAttendanceReverted, tr.Reason)
					}
				}
			}
		}
	}
}

func TestComputeTransitionScenarios(t *testing.T) {
	tests := []struct {
		name          string
		old           ledger.State
		new           ledger.State
		isMakeUp      bool
		wantDelta     int
		wantReason    model.BalanceChangeReason
		wantCoinDelta int
	}{
		{
			name:          "unspecified to present charges",
			old:           ledger.State{Status: model.AttendanceStatusUnspecified},
			new:           ledger.State{Status: model.AttendanceStatusPresent},
			wantDelta:     -1,
			wantReason:    model.ReasonAttendancePresentCharged,
			wantCoinDelta: ledger.CoinsPerVisit,
		},
		{
			name:          "present to warned absent reverts",
			old:           ledger.State{Status: model.AttendanceStatusPresent},
			new:           ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(true)},
			wantDelta:     +1,
			wantReason:    model.ReasonAttendanceReverted,
			wantCoinDelta: -ledger.CoinsPerVisit,
		},
		{
			name:          "late warning reverts without touching coins",
			old:           ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(false)},
			new:           ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(true)},
			wantDelta:     +1,
			wantReason:    model.ReasonAttendanceReverted,
			wantCoinDelta: 0,
		},
		{
			name:          "makeup attended charges with makeup reason",
			old:           ledger.State{Status: model.AttendanceStatusUnspecified},
			new:           ledger.State{Status: model.AttendanceStatusPresent},
			isMakeUp:      true,
			wantDelta:     -1,
			wantReason:    model.ReasonMakeUpAttendedCharged,
			wantCoinDelta: ledger.CoinsPerVisit,
		},
		{
			name:          "unexcused absence charges",
			old:           ledger.State{Status: model.AttendanceStatusUnspecified},
			new:           ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(false)},
			wantDelta:     -1,
			wantReason:    model.ReasonAttendanceAbsentCharged,
			wantCoinDelta: 0,
		},
		{
			name:          "present to unexcused absent keeps charge",
			old:           ledger.State{Status: model.AttendanceStatusPresent},
			new:           ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(false)},
			wantDelta:     0,
			wantCoinDelta: -ledger.CoinsPerVisit,
		},
		{
			name:          "present to present is a no-op",
			old:           ledger.State{Status: model.AttendanceStatusPresent},
			new:           ledger.State{Status: model.AttendanceStatusPresent},
			wantDelta:     0,
			wantCoinDelta: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := ledger.ComputeTransition(tt.old, tt.new, tt.isMakeUp)

			assert.Equal(t, tt.wantDelta, tr.Delta)
			assert.Equal(t, tt.wantReason, tr.Reason)
			assert.Equal(t, tt.wantCoinDelta, tr.CoinDelta)
		})
	}
}

// TestCoinSymmetry цикл PRESENT -> ABSENT -> PRESENT возвращает монеты
// к исходному значению
func TestCoinSymmetry(t *testing.T) {
	present := ledger.State{Status: model.AttendanceStatusPresent}
	absent := ledger.State{Status: model.AttendanceStatusAbsent, IsWarned: boolPtr(true)}

	coins := 0
	coins += ledger.ComputeTransition(present, absent, false).CoinDelta
	coins += ledger.ComputeTransition(absent, present, false).CoinDelta

	assert.Zero(t, coins)
}

// TestMakeUpFlagDoesNotAffectReverts причина отмены списания не зависит
// от того является ли отметка отработкой
func TestMakeUpFlagDoesNotAffectReverts(t *testing.T) {
	old := ledger.State{Status: model.AttendanceStatusPresent}
	new := ledger.State{Status: model.AttendanceStatusUnspecified}

	plain := ledger.ComputeTransition(old, new, false)
	makeup := ledger.ComputeTransition(old, new, true)

	assert.Equal(t, model.ReasonAttendanceReverted, plain.Reason)
	assert.Equal(t, model.ReasonAttendanceReverted, makeup.Reason)
	assert.Equal(t, plain.Delta, makeup.Delta)
}
