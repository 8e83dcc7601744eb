package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	appmodel "github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/service"
	"go.uber.org/zap"
)

// handleStart обрабатывает команду /start
func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := "👋 Привет!\n\n" +
		"Это бот учёта посещаемости учебного центра.\n\n" +
		"Доступные команды:\n" +
		"/groups - Группы и отметка посещаемости\n" +
		"/balance <id> - Баланс ученика\n" +
		"/report - Пропуски по неделям\n" +
		"/reportmonth - Пропуски по месяцам\n" +
		"/help - Справка"

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

// handleHelp обрабатывает команду /help
func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := "📚 Справка по командам:\n\n" +
		"/groups - Список групп. Выберите группу чтобы отметить посещаемость ближайшего занятия.\n\n" +
		"Отметки:\n" +
		"✅ - присутствовал (списывается занятие, +10 монет)\n" +
		"❌ - пропуск без предупреждения (занятие сгорает)\n" +
		"⚠️ - пропуск с предупреждением (занятие сохраняется)\n\n" +
		"/balance <id> - Балансы ученика по группам\n" +
		"/history <ученик> <группа> - История проводок по балансу\n" +
		"/report - Статистика пропусков по неделям\n" +
		"/reportmonth - Статистика пропусков по месяцам\n" +
		"/dismissals - Отток учеников по неделям\n\n" +
		"Администрирование:\n" +
		"/newstudent <regular|trial> <имя> [фамилия]\n" +
		"/newgroup <день 0-6> <ЧЧ:ММ> <занятий> <название>\n" +
		"/reschedule <группа> <день> <ЧЧ:ММ> - Перенос будущих занятий\n" +
		"/cancellesson <занятие> - Отменить занятие\n" +
		"/enroll, /unenroll <ученик> <группа>\n" +
		"/makeup <пропуск> <отметка>, /unmakeup <пропуск>, /saved <пропуск>\n" +
		"/pay <членство> <сумма> <занятий>, /payments <членство>"

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

// handleGroups показывает список групп с кнопками
func (c *BotController) handleGroups(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	groups, err := c.scheduleService.GetGroups(ctx)
	if err != nil {
		c.logger.Error("Failed to get groups", zap.Error(err))
		c.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	if len(groups) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Групп пока нет",
		})
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, g := range groups {
		label := fmt.Sprintf("%s (%s %s)", g.Name, weekdayName(g.Weekday), g.LessonTime)
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: label, CallbackData: fmt.Sprintf("group:%d", g.ID)},
		})
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "📚 Выберите группу:",
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// handleBalance обрабатывает команду /balance <id>
func (c *BotController) handleBalance(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Использование: /balance <id ученика>",
		})
		return
	}

	studentID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Неверный id ученика",
		})
		return
	}

	memberships, err := c.reportService.StudentBalanceOverview(ctx, studentID)
	if err != nil {
		c.logger.Error("Failed to get balance overview",
			zap.Int64("student_id", studentID),
			zap.Error(err))
		c.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	if len(memberships) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Ученик не состоит ни в одной группе",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💰 Балансы ученика %d:\n\n", studentID))
	for _, sg := range memberships {
		sb.WriteString(fmt.Sprintf("%s: %d занятий (всего списано %d, оплачено %s, занятие ≈ %s ₽)\n",
			sg.Group.Name, sg.LessonsBalance, sg.TotalLessons,
			sg.TotalPayments.StringFixed(2), sg.PerLessonRate().StringFixed(2)))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

// handleWeekReport показывает пропуски по неделям за последние 3 месяца
func (c *BotController) handleWeekReport(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.sendAbsenceReport(ctx, b, update, service.BucketWeek)
}

// handleMonthReport показывает пропуски по месяцам за последние 3 месяца
func (c *BotController) handleMonthReport(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.sendAbsenceReport(ctx, b, update, service.BucketMonth)
}

func (c *BotController) sendAbsenceReport(ctx context.Context, b *bot.Bot, update *models.Update, bucket service.ReportBucket) {
	if update.Message == nil {
		return
	}

	now := c.clock.Now()
	from := now.AddDate(0, -3, 0)
	to := now.AddDate(0, 0, 1)

	stats, err := c.reportService.AbsenceStats(ctx, day(from), day(to), bucket)
	if err != nil {
		c.logger.Error("Failed to get absence stats", zap.Error(err))
		c.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	if len(stats) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Пропусков за период нет 🎉",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Пропуски за 3 месяца:\n\n")
	for _, row := range stats {
		sb.WriteString(fmt.Sprintf("%s: пропущено %d (на %s ₽), отработано %d (на %s ₽)\n",
			row.BucketLabel,
			row.MissedCount, row.MissedMoney.StringFixed(2),
			row.SavedCount, row.SavedMoney.StringFixed(2)))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

// handleDismissals показывает отток учеников по неделям за 3 месяца
func (c *BotController) handleDismissals(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	now := c.clock.Now()
	from := now.AddDate(0, -3, 0)
	to := now.AddDate(0, 0, 1)

	stats, err := c.reportService.DismissalStats(ctx, day(from), day(to), service.BucketWeek)
	if err != nil {
		c.logger.Error("Failed to get dismissal stats", zap.Error(err))
		c.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	if len(stats) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Потерянных учеников за период нет 🎉",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("📉 Отток за 3 месяца (последняя отметка — пропуск):\n\n")
	for _, row := range stats {
		sb.WriteString(fmt.Sprintf("%s: %d учеников\n", row.BucketLabel, row.LostCount))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

// handleHistory обрабатывает команду /history <ученик> <группа>:
// последние проводки по балансу пары
func (c *BotController) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 2)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /history <id ученика> <id группы>")
		return
	}

	entries, err := c.historyRepo.GetByStudentAndGroup(ctx, args[0], args[1], 15)
	if err != nil {
		c.logger.Error("Failed to get balance history", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	if len(entries) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Проводок по этой паре ещё нет",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 История баланса (ученик %d, группа %d):\n\n", args[0], args[1]))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s: %+d (%d → %d) %s\n",
			e.CreatedAt.Format("02.01 15:04"), e.Delta, e.BalanceBefore, e.BalanceAfter, reasonLabel(e.Reason)))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}

// handlePayments обрабатывает команду /payments <членство>
func (c *BotController) handlePayments(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 1)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /payments <id членства>")
		return
	}

	payments, err := c.enrollmentService.ListPayments(ctx, args[0])
	if err != nil {
		c.logger.Error("Failed to list payments", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	if len(payments) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Оплат по этому членству нет",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💳 Оплаты членства %d:\n\n", args[0]))
	for _, p := range payments {
		sb.WriteString(fmt.Sprintf("%s: %s ₽ за %d занятий\n",
			p.CreatedAt.Format("02.01.2006"), p.Amount.StringFixed(2), p.LessonsPaid))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}

// reasonLabel русская подпись причины проводки
func reasonLabel(reason appmodel.BalanceChangeReason) string {
	switch reason {
	case appmodel.ReasonAttendancePresentCharged:
		return "посещение"
	case appmodel.ReasonAttendanceAbsentCharged:
		return "пропуск без предупреждения"
	case appmodel.ReasonMakeUpAttendedCharged:
		return "отработка"
	case appmodel.ReasonAttendanceReverted:
		return "возврат"
	default:
		return string(reason)
	}
}

func (c *BotController) sendError(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "❌ Произошла ошибка. Попробуйте позже.",
	})
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
