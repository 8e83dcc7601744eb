package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Фейковые хранилища: транзакционная обвязка журнала проверяется без БД

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	txs []*fakeTx
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return tx, nil
}

type stateUpdate struct {
	id       int64
	status   model.AttendanceStatus
	isWarned *bool
}

type fakeAttendances struct {
	byID           map[int64]*model.Attendance
	updates        []stateUpdate
	commentUpdates []string
}

func (f *fakeAttendances) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Attendance, error) {
	att, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return att, nil
}

func (f *fakeAttendances) UpdateState(ctx context.Context, tx pgx.Tx, id int64, status model.AttendanceStatus, isWarned *bool) error {
	f.updates = append(f.updates, stateUpdate{id: id, status: status, isWarned: isWarned})
	att := f.byID[id]
	att.Status = status
	att.IsWarned = isWarned
	return nil
}

func (f *fakeAttendances) UpdateComment(ctx context.Context, id int64, comment string) (int64, error) {
	if _, ok := f.byID[id]; !ok {
		return 0, nil
	}
	f.commentUpdates = append(f.commentUpdates, comment)
	return 1, nil
}

type fakeMemberships struct {
	sg       *model.StudentGroup
	deltaErr error // Ошибка первого ApplyDelta (для проверки повтора)
	applied  int
}

func (f *fakeMemberships) GetForUpdate(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (*model.StudentGroup, error) {
	if f.sg == nil || f.sg.StudentID != studentID || f.sg.GroupID != groupID {
		return nil, nil
	}
	return f.sg, nil
}

func (f *fakeMemberships) ApplyDelta(ctx context.Context, tx pgx.Tx, id int64, delta, totalDelta int) error {
	if f.deltaErr != nil {
		err := f.deltaErr
		f.deltaErr = nil
		return err
	}
	f.applied++
	f.sg.LessonsBalance += delta
	f.sg.TotalLessons += totalDelta
	return nil
}

type fakeHistory struct {
	entries   []*model.LessonsBalanceHistory
	exists    bool
	createErr error
}

func (f *fakeHistory) Create(ctx context.Context, tx pgx.Tx, h *model.LessonsBalanceHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, h)
	return nil
}

func (f *fakeHistory) ExistsForStudentGroup(ctx context.Context, tx pgx.Tx, studentID, groupID int64) (bool, error) {
	return f.exists, nil
}

type fakeMakeups struct {
	byMakeup map[int64]*model.MakeUp
}

func (f *fakeMakeups) GetByMakeUp(ctx context.Context, q base.Querier, makeupAttendanceID int64) (*model.MakeUp, error) {
	return f.byMakeup[makeupAttendanceID], nil
}

type fakeCoins struct {
	coins map[int64]int
}

func (f *fakeCoins) AddCoins(ctx context.Context, tx pgx.Tx, id int64, delta int) error {
	f.coins[id] += delta
	return nil
}

type ledgerFixture struct {
	db          *fakeDB
	attendances *fakeAttendances
	memberships *fakeMemberships
	history     *fakeHistory
	makeups     *fakeMakeups
	coins       *fakeCoins
	service     *LedgerService
}

func newLedgerFixture(att *model.Attendance, sg *model.StudentGroup) *ledgerFixture {
	f := &ledgerFixture{
		db:          &fakeDB{},
		attendances: &fakeAttendances{byID: map[int64]*model.Attendance{att.ID: att}},
		memberships: &fakeMemberships{sg: sg},
		history:     &fakeHistory{},
		makeups:     &fakeMakeups{byMakeup: map[int64]*model.MakeUp{}},
		coins:       &fakeCoins{coins: map[int64]int{}},
	}
	f.service = NewLedgerService(
		f.db, f.attendances, f.memberships, f.history, f.makeups, f.coins, zap.NewNop())
	return f
}

func testAttendance(status model.AttendanceStatus, isWarned *bool, studentStatus model.StudentStatus) *model.Attendance {
	return &model.Attendance{
		ID:            1,
		StudentID:     10,
		LessonID:      100,
		Status:        status,
		IsWarned:      isWarned,
		StudentStatus: studentStatus,
		Lesson:        &model.Lesson{ID: 100, GroupID: 5, Time: "16:00"},
	}
}

func testMembership(balance int) *model.StudentGroup {
	return &model.StudentGroup{ID: 50, StudentID: 10, GroupID: 5, LessonsBalance: balance}
}

func TestApplyStatusChangeCharges(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(3))

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)

	// Баланс списан, счётчик занятий вырос
	assert.Equal(t, 2, fix.memberships.sg.LessonsBalance)
	assert.Equal(t, 1, fix.memberships.sg.TotalLessons)

	// Ровно одна проводка с корректной арифметикой
	require.Len(t, fix.history.entries, 1)
	entry := fix.history.entries[0]
	assert.Equal(t, -1, entry.Delta)
	assert.Equal(t, 3, entry.BalanceBefore)
	assert.Equal(t, 2, entry.BalanceAfter)
	assert.Equal(t, entry.Delta, entry.BalanceAfter-entry.BalanceBefore)
	assert.Equal(t, model.ReasonAttendancePresentCharged, entry.Reason)
	assert.Equal(t, int64(777), entry.ActorUserID)
	assert.Equal(t, model.AttendanceStatusUnspecified, entry.Meta.OldStatus)
	assert.Equal(t, model.AttendanceStatusPresent, entry.Meta.NewStatus)

	// Монеты начислены, отметка сохранена, транзакция закоммичена
	assert.Equal(t, ledger.CoinsPerVisit, fix.coins.coins[10])
	require.Len(t, fix.attendances.updates, 1)
	assert.Equal(t, model.AttendanceStatusPresent, fix.attendances.updates[0].status)
	require.Len(t, fix.db.txs, 1)
	assert.True(t, fix.db.txs[0].committed)
}

func TestApplyStatusChangeReverts(t *testing.T) {
	att := testAttendance(model.AttendanceStatusPresent, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(0))
	warned := true

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusAbsent, &warned)
	require.NoError(t, err)

	assert.Equal(t, 1, fix.memberships.sg.LessonsBalance)
	assert.Equal(t, -1, fix.memberships.sg.TotalLessons)

	require.Len(t, fix.history.entries, 1)
	assert.Equal(t, +1, fix.history.entries[0].Delta)
	assert.Equal(t, model.ReasonAttendanceReverted, fix.history.entries[0].Reason)

	// Выход из PRESENT снимает монеты
	assert.Equal(t, -ledger.CoinsPerVisit, fix.coins.coins[10])
}

func TestApplyStatusChangeMakeUpReason(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(2))
	fix.makeups.byMakeup[att.ID] = &model.MakeUp{ID: 9, MissedAttendanceID: 42, MakeUpAttendanceID: att.ID}

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)

	require.Len(t, fix.history.entries, 1)
	assert.Equal(t, model.ReasonMakeUpAttendedCharged, fix.history.entries[0].Reason)
	assert.True(t, fix.history.entries[0].Meta.IsMakeUp)
}

// TestApplyStatusChangeNoOp переход без смены предиката списания не
// пишет проводку и не трогает баланс
func TestApplyStatusChangeNoOp(t *testing.T) {
	notWarned := false
	att := testAttendance(model.AttendanceStatusPresent, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(4))

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusAbsent, &notWarned)
	require.NoError(t, err)

	assert.Empty(t, fix.history.entries)
	assert.Equal(t, 4, fix.memberships.sg.LessonsBalance)
	assert.Zero(t, fix.memberships.applied)

	// Но отметка сохранена и монеты за выход из PRESENT сняты
	require.Len(t, fix.attendances.updates, 1)
	assert.Equal(t, -ledger.CoinsPerVisit, fix.coins.coins[10])
}

// TestApplyStatusChangeTrial пробный ученик: сохраняется только отметка
func TestApplyStatusChangeTrial(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusTrial)
	fix := newLedgerFixture(att, testMembership(2))

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)

	assert.Empty(t, fix.history.entries)
	assert.Equal(t, 2, fix.memberships.sg.LessonsBalance)
	assert.Empty(t, fix.coins.coins)
	require.Len(t, fix.attendances.updates, 1)
	assert.True(t, fix.db.txs[0].committed)
}

// TestApplyStatusChangeTrialInvariant проводки у пробного ученика —
// порча данных: ошибка, ничего не сохраняется
func TestApplyStatusChangeTrialInvariant(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusTrial)
	fix := newLedgerFixture(att, testMembership(2))
	fix.history.exists = true

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.ErrorIs(t, err, ledger.ErrInvariant)

	assert.Empty(t, fix.attendances.updates)
	assert.True(t, fix.db.txs[0].rolledBack)
}

func TestApplyStatusChangeNotFound(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(0))

	err := fix.service.ApplyStatusChange(context.Background(), 777, 999, model.AttendanceStatusPresent, nil)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestApplyStatusChangeMembershipMissing(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, nil)

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	assert.True(t, fix.db.txs[0].rolledBack)
}

func TestApplyStatusChangeInvalidStatus(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(0))

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatus("LATE"), nil)
	require.Error(t, err)
	assert.Empty(t, fix.db.txs)
}

// TestApplyStatusChangeRollback отказ записи проводки откатывает всё
func TestApplyStatusChangeRollback(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(1))
	fix.history.createErr = errors.New("disk full")

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.Error(t, err)

	assert.Empty(t, fix.attendances.updates)
	assert.True(t, fix.db.txs[0].rolledBack)
}

// TestApplyStatusChangeRetriesConflict конфликт сериализации повторяется
// один раз со свежим чтением
func TestApplyStatusChangeRetriesConflict(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(1))
	fix.memberships.deltaErr = &pgconn.PgError{Code: "40001"}

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)

	require.Len(t, fix.db.txs, 2)
	assert.True(t, fix.db.txs[0].rolledBack)
	assert.True(t, fix.db.txs[1].committed)
	require.Len(t, fix.history.entries, 1)
}

// TestApplyStatusChangeConflictSurfaced повторный конфликт отдаётся
// наружу как ErrTxConflict
func TestApplyStatusChangeConflictSurfaced(t *testing.T) {
	att := testAttendance(model.AttendanceStatusUnspecified, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(1))

	// Ошибка не сбрасывается: конфликтуют обе попытки
	persistent := &fakeMemberships{sg: testMembership(1)}
	fix.service.memberships = conflictAlways{persistent}

	err := fix.service.ApplyStatusChange(context.Background(), 777, att.ID, model.AttendanceStatusPresent, nil)
	require.ErrorIs(t, err, ledger.ErrTxConflict)
	assert.Len(t, fix.db.txs, 2)
}

type conflictAlways struct {
	*fakeMemberships
}

func (c conflictAlways) ApplyDelta(ctx context.Context, tx pgx.Tx, id int64, delta, totalDelta int) error {
	return &pgconn.PgError{Code: "40001"}
}

// TestUpdateCommentFastPath комментарий меняется без транзакции и журнала
func TestUpdateCommentFastPath(t *testing.T) {
	att := testAttendance(model.AttendanceStatusPresent, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(0))

	err := fix.service.UpdateComment(context.Background(), att.ID, "опоздал на 10 минут")
	require.NoError(t, err)

	assert.Empty(t, fix.db.txs)
	assert.Empty(t, fix.history.entries)
	assert.Equal(t, []string{"опоздал на 10 минут"}, fix.attendances.commentUpdates)
}

func TestUpdateCommentNotFound(t *testing.T) {
	att := testAttendance(model.AttendanceStatusPresent, nil, model.StudentStatusRegular)
	fix := newLedgerFixture(att, testMembership(0))

	err := fix.service.UpdateComment(context.Background(), 999, "x")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
