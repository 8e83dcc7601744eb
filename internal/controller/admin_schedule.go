package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	appmodel "github.com/selfdestroying/eduda-sub001/internal/model"
	"github.com/selfdestroying/eduda-sub001/internal/service"
	"go.uber.org/zap"
)

// handleNewStudent обрабатывает команду /newstudent <regular|trial> <имя> [фамилия]
func (c *BotController) handleNewStudent(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 || len(parts) > 4 {
		c.sendUsage(ctx, b, chatID, "Использование: /newstudent <regular|trial> <имя> [фамилия]")
		return
	}

	status := appmodel.StudentStatus(parts[1])
	firstName := parts[2]
	lastName := ""
	if len(parts) == 4 {
		lastName = parts[3]
	}

	student, err := c.enrollmentService.CreateStudent(ctx, firstName, lastName, status)
	if err != nil {
		c.logger.Error("Failed to create student", zap.Error(err))
		c.sendUsage(ctx, b, chatID, "❌ Не удалось создать ученика, проверьте статус (regular/trial)")
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Ученик %s создан (id %d)", student.FullName(), student.ID),
	})
}

// handleNewGroup обрабатывает команду
// /newgroup <день 0-6> <HH:MM> <занятий> <название>
func (c *BotController) handleNewGroup(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 5 {
		c.sendUsage(ctx, b, chatID, "Использование: /newgroup <день 0-6> <ЧЧ:ММ> <кол-во занятий> <название>")
		return
	}

	weekday, err := strconv.Atoi(parts[1])
	if err != nil || weekday < 0 || weekday > 6 {
		c.sendUsage(ctx, b, chatID, "❌ День недели — число от 0 (вс) до 6 (сб)")
		return
	}

	lessonTime := parts[2]
	if !validLessonTime(lessonTime) {
		c.sendUsage(ctx, b, chatID, "❌ Время в формате ЧЧ:ММ, например 16:30")
		return
	}

	count, err := strconv.Atoi(parts[3])
	if err != nil || count <= 0 {
		c.sendUsage(ctx, b, chatID, "❌ Количество занятий — положительное число")
		return
	}

	name := strings.Join(parts[4:], " ")

	group, lessonIDs, err := c.scheduleService.CreateGroup(
		ctx, name, weekday, lessonTime, service.Today(c.clock), count)
	if err != nil {
		c.logger.Error("Failed to create group", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ Группа «%s» создана (id %d), занятий: %d, по %s в %s",
			group.Name, group.ID, len(lessonIDs), weekdayName(weekday), lessonTime),
	})
}

// handleReschedule обрабатывает команду /reschedule <группа> <день> <HH:MM>.
// Переносятся только будущие занятия, прошедшие не трогаются.
func (c *BotController) handleReschedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 4 {
		c.sendUsage(ctx, b, chatID, "Использование: /reschedule <id группы> <день 0-6> <ЧЧ:ММ>")
		return
	}

	groupID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		c.sendUsage(ctx, b, chatID, "❌ Неверный id группы")
		return
	}

	weekday, err := strconv.Atoi(parts[2])
	if err != nil || weekday < 0 || weekday > 6 {
		c.sendUsage(ctx, b, chatID, "❌ День недели — число от 0 (вс) до 6 (сб)")
		return
	}

	newTime := parts[3]
	if !validLessonTime(newTime) {
		c.sendUsage(ctx, b, chatID, "❌ Время в формате ЧЧ:ММ, например 16:30")
		return
	}

	err = c.scheduleService.RescheduleGroup(ctx, groupID, weekday, newTime)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.sendUsage(ctx, b, chatID, "❌ Группа не найдена")
		return
	case err != nil:
		c.logger.Error("Failed to reschedule group", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ Группа перенесена: теперь %s в %s, будущие занятия переставлены",
			weekdayName(weekday), newTime),
	})
}

// handleCancelLesson обрабатывает команду /cancellesson <занятие>
func (c *BotController) handleCancelLesson(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 1)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /cancellesson <id занятия>")
		return
	}

	err := c.scheduleService.CancelLesson(ctx, args[0])
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.sendUsage(ctx, b, chatID, "❌ Занятие не найдено")
		return
	case err != nil:
		c.logger.Error("Failed to cancel lesson", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Занятие отменено",
	})
}

// validLessonTime проверяет формат времени "ЧЧ:ММ"
func validLessonTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
