package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/selfdestroying/eduda-sub001/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// handleEnroll обрабатывает команду /enroll <ученик> <группа>
func (c *BotController) handleEnroll(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 2)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /enroll <id ученика> <id группы>")
		return
	}

	sg, err := c.enrollmentService.Enroll(ctx, args[0], args[1])
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.sendUsage(ctx, b, chatID, "❌ Ученик или группа не найдены")
		return
	case err != nil:
		c.logger.Error("Failed to enroll student", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Ученик %d зачислен в группу %d (членство %d)", args[0], args[1], sg.ID),
	})
}

// handleUnenroll обрабатывает команду /unenroll <ученик> <группа>.
// Удаляются только нетронутые будущие отметки, история списаний
// сохраняется.
func (c *BotController) handleUnenroll(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 2)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /unenroll <id ученика> <id группы>")
		return
	}

	purged, err := c.enrollmentService.PurgeFutureUnspecified(ctx, args[0], args[1])
	if err != nil {
		c.logger.Error("Failed to purge future attendances", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Удалено %d будущих отметок", purged),
	})
}

// handleMakeUp обрабатывает команду /makeup <пропуск> <отметка>
func (c *BotController) handleMakeUp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 2)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /makeup <id пропуска> <id отметки-отработки>")
		return
	}

	link, err := c.makeupService.CreateMakeUp(ctx, args[0], args[1])
	switch {
	case errors.Is(err, ledger.ErrMakeUpConflict):
		c.sendUsage(ctx, b, chatID, "❌ Пропуск уже отрабатывается или отметка занята другой отработкой")
		return
	case errors.Is(err, ledger.ErrNotFound):
		c.sendUsage(ctx, b, chatID, "❌ Отметка не найдена")
		return
	case err != nil:
		c.logger.Error("Failed to create makeup link", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Отработка назначена (связь %d)", link.ID),
	})
}

// handleUnMakeUp обрабатывает команду /unmakeup <пропуск>
func (c *BotController) handleUnMakeUp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 1)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /unmakeup <id пропуска>")
		return
	}

	err := c.makeupService.DeleteMakeUp(ctx, args[0])
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.sendUsage(ctx, b, chatID, "❌ У пропуска нет отработки")
		return
	case err != nil:
		c.logger.Error("Failed to delete makeup link", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Отработка снята с пропуска",
	})
}

// handleMakeUpSaved обрабатывает команду /saved <пропуск>: закрыт ли
// пропуск отработкой на которую ученик пришёл
func (c *BotController) handleMakeUpSaved(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, ok := parseIDs(update.Message.Text, 1)
	if !ok {
		c.sendUsage(ctx, b, chatID, "Использование: /saved <id пропуска>")
		return
	}

	saved, err := c.makeupService.IsSaved(ctx, args[0])
	if err != nil {
		c.logger.Error("Failed to check makeup status", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	text := "❌ Пропуск не закрыт отработкой"
	if saved {
		text = "✅ Пропуск отработан"
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

// handlePay обрабатывает команду /pay <членство> <сумма> <занятий>
func (c *BotController) handlePay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 4 {
		c.sendUsage(ctx, b, chatID, "Использование: /pay <id членства> <сумма> <кол-во занятий>")
		return
	}

	studentGroupID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		c.sendUsage(ctx, b, chatID, "❌ Неверный id членства")
		return
	}

	amount, err := decimal.NewFromString(parts[2])
	if err != nil {
		c.sendUsage(ctx, b, chatID, "❌ Неверная сумма")
		return
	}

	lessons, err := strconv.Atoi(parts[3])
	if err != nil {
		c.sendUsage(ctx, b, chatID, "❌ Неверное количество занятий")
		return
	}

	payment, err := c.enrollmentService.RecordPayment(ctx, update.Message.From.ID, studentGroupID, amount, lessons)
	if err != nil {
		c.logger.Error("Failed to record payment", zap.Error(err))
		c.sendError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("✅ Оплата %s ₽ принята, на баланс добавлено %d занятий (платёж %d)",
			payment.Amount.StringFixed(2), payment.LessonsPaid, payment.ID),
	})
}

func (c *BotController) sendUsage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

// parseIDs разбирает команду вида "/cmd <id> <id> ..." на n числовых аргументов
func parseIDs(text string, n int) ([]int64, bool) {
	parts := strings.Fields(text)
	if len(parts) != n+1 {
		return nil, false
	}

	ids := make([]int64, 0, n)
	for _, part := range parts[1:] {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}

	return ids, true
}
