package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReportBucket string

const (
	BucketWeek  ReportBucket = "week"  // ISO-неделя, начало с понедельника
	BucketMonth ReportBucket = "month" // Календарный месяц
)

// AbsenceStatsRow агрегат пропусков за один период
type AbsenceStatsRow struct {
	BucketLabel string          `json:"bucket_label"`
	MissedCount int             `json:"missed_count"`
	SavedCount  int             `json:"saved_count"`  // Пропуски закрытые отработкой с PRESENT
	MissedMoney decimal.Decimal `json:"missed_money"` // missed x стоимость занятия
	SavedMoney  decimal.Decimal `json:"saved_money"`
}

// DismissalStatsRow агрегат оттока за один период
type DismissalStatsRow struct {
	BucketLabel string `json:"bucket_label"`
	LostCount   int    `json:"lost_count"`
}

// ReportService отчётные агрегаты поверх журнала. Только чтение:
// сервис не выполняет ни одной записи.
type ReportService struct {
	reportRepo       *repository.ReportRepository
	studentGroupRepo *repository.StudentGroupRepository
	logger           *zap.Logger
}

func NewReportService(
	reportRepo *repository.ReportRepository,
	studentGroupRepo *repository.StudentGroupRepository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo:       reportRepo,
		studentGroupRepo: studentGroupRepo,
		logger:           logger,
	}
}

// AbsenceStats считает по периодам количество пропусков, количество
// закрытых отработками пропусков и их денежный эквивалент. Стоимость
// занятия — total_payments / total_lessons членства, ноль если
// списаний ещё не было.
func (s *ReportService) AbsenceStats(ctx context.Context, from, to time.Time, bucket ReportBucket) ([]*AbsenceStatsRow, error) {
	rows, err := s.reportRepo.GetAbsences(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get absences: %w", err)
	}

	return AggregateAbsences(rows, bucket), nil
}

// AggregateAbsences сворачивает пропуски в агрегаты по периодам.
// Вынесено из AbsenceStats чтобы агрегацию можно было проверить без БД.
func AggregateAbsences(rows []*repository.AbsenceRow, bucket ReportBucket) []*AbsenceStatsRow {
	buckets := make(map[string]*AbsenceStatsRow)
	for _, row := range rows {
		label := BucketLabel(row.Date, bucket)

		agg, ok := buckets[label]
		if !ok {
			agg = &AbsenceStatsRow{
				BucketLabel: label,
				MissedMoney: decimal.Zero,
				SavedMoney:  decimal.Zero,
			}
			buckets[label] = agg
		}

		rate := perLessonRate(row.TotalPayments, row.TotalLessons)

		agg.MissedCount++
		agg.MissedMoney = agg.MissedMoney.Add(rate)

		if row.MakeUpStatus != nil && *row.MakeUpStatus == model.AttendanceStatusPresent {
			agg.SavedCount++
			agg.SavedMoney = agg.SavedMoney.Add(rate)
		}
	}

	return sortedStats(buckets)
}

// DismissalStats считает по периодам потерянных учеников: тех чья
// последняя проставленная отметка за период — пропуск, после которого
// отметок больше не было.
func (s *ReportService) DismissalStats(ctx context.Context, from, to time.Time, bucket ReportBucket) ([]*DismissalStatsRow, error) {
	rows, err := s.reportRepo.GetLastSeen(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get last seen: %w", err)
	}

	buckets := make(map[string]*DismissalStatsRow)
	for _, row := range rows {
		if row.LastStatus != model.AttendanceStatusAbsent {
			continue
		}

		label := BucketLabel(row.LastDate, bucket)
		agg, ok := buckets[label]
		if !ok {
			agg = &DismissalStatsRow{BucketLabel: label}
			buckets[label] = agg
		}
		agg.LostCount++
	}

	result := make([]*DismissalStatsRow, 0, len(buckets))
	for _, agg := range buckets {
		result = append(result, agg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketLabel < result[j].BucketLabel
	})

	return result, nil
}

// StudentBalanceOverview возвращает балансы ученика по всем его группам
func (s *ReportService) StudentBalanceOverview(ctx context.Context, studentID int64) ([]*model.StudentGroup, error) {
	return s.studentGroupRepo.GetByStudent(ctx, studentID)
}

// BucketLabel возвращает метку периода для даты: "2026-W35" для недель
// (ISO, недели начинаются с понедельника), "2026-08" для месяцев.
// Метки лексикографически сортируются в хронологическом порядке.
func BucketLabel(date time.Time, bucket ReportBucket) string {
	if bucket == BucketMonth {
		return date.Format("2006-01")
	}

	year, week := date.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// perLessonRate стоимость одного занятия, ноль если списаний не было
func perLessonRate(totalPayments decimal.Decimal, totalLessons int) decimal.Decimal {
	if totalLessons == 0 {
		return decimal.Zero
	}
	return totalPayments.Div(decimal.NewFromInt(int64(totalLessons)))
}

func sortedStats(buckets map[string]*AbsenceStatsRow) []*AbsenceStatsRow {
	result := make([]*AbsenceStatsRow, 0, len(buckets))
	for _, agg := range buckets {
		result = append(result, agg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketLabel < result[j].BucketLabel
	})
	return result
}
