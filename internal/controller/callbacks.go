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
	appmodel "github.com/selfdestroying/eduda-sub001/internal/model"
	"go.uber.org/zap"
)

// Форматы callback data:
//   group:<groupID>              - показать ближайшее занятие группы
//   mark:<attendanceID>:<code>   - проставить отметку (p/a/w/u)

// handleCallbackQuery обрабатывает нажатия на inline кнопки
func (c *BotController) handleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	query := update.CallbackQuery

	// Сразу подтверждаем получение callback
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	})

	if query.Message.Message == nil {
		return
	}

	parts := strings.Split(query.Data, ":")

	var err error
	switch parts[0] {
	case "group":
		err = c.showGroupLesson(ctx, b, query, parts)
	case "mark":
		err = c.markAttendance(ctx, b, query, parts)
	default:
		return
	}

	if err != nil {
		c.logger.Error("Callback handling failed",
			zap.String("data", query.Data),
			zap.Error(err))
		c.sendError(ctx, b, query.Message.Message.Chat.ID)
	}
}

// showGroupLesson показывает ближайшее занятие группы со списком
// учеников и кнопками отметок
func (c *BotController) showGroupLesson(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("invalid callback format: %q", strings.Join(parts, ":"))
	}

	groupID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse group id: %w", err)
	}

	lesson, err := c.scheduleService.GetNearestLesson(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get nearest lesson: %w", err)
	}

	chatID := query.Message.Message.Chat.ID

	if lesson == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "У группы нет будущих занятий",
		})
		return nil
	}

	return c.renderLesson(ctx, b, chatID, 0, lesson.ID, lesson.Date.Format("02.01.2006"), lesson.Time)
}

// markAttendance проводит отметку через журнал и перерисовывает занятие
func (c *BotController) markAttendance(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, parts []string) error {
	if len(parts) != 3 {
		return fmt.Errorf("invalid callback format: %q", strings.Join(parts, ":"))
	}

	attendanceID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse attendance id: %w", err)
	}

	status, isWarned, err := decodeMark(parts[2])
	if err != nil {
		return err
	}

	// Идентификатор актёра для аудита — телеграм-аккаунт преподавателя
	actorUserID := query.From.ID

	chatID := query.Message.Message.Chat.ID
	messageID := query.Message.Message.ID

	err = c.ledgerService.ApplyStatusChange(ctx, actorUserID, attendanceID, status, isWarned)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Отметка не найдена",
		})
		return nil
	case errors.Is(err, ledger.ErrTxConflict):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⏳ Отметку меняют одновременно с вами, попробуйте ещё раз",
		})
		return nil
	case err != nil:
		return fmt.Errorf("apply status change: %w", err)
	}

	att, err := c.attendanceRepo.GetByID(ctx, attendanceID)
	if err != nil {
		return fmt.Errorf("get attendance: %w", err)
	}
	if att == nil {
		return nil
	}

	return c.renderLesson(ctx, b, chatID, messageID, att.LessonID, att.Lesson.Date.Format("02.01.2006"), att.Lesson.Time)
}

// renderLesson рисует список учеников занятия с кнопками отметок.
// messageID != 0 — перерисовать существующее сообщение.
func (c *BotController) renderLesson(ctx context.Context, b *bot.Bot, chatID int64, messageID int, lessonID int64, dateLabel, timeLabel string) error {
	attendances, err := c.attendanceRepo.GetByLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("get lesson attendances: %w", err)
	}

	text := fmt.Sprintf("🗓 Занятие %s %s\n\nНажмите отметку напротив ученика:", dateLabel, timeLabel)

	var rows [][]models.InlineKeyboardButton
	for _, att := range attendances {
		label := fmt.Sprintf("%s %s", statusEmoji(att), att.Student.FullName())
		if att.StudentStatus == appmodel.StudentStatusTrial {
			label += " (пробное)"
		}
		rows = append(rows,
			[]models.InlineKeyboardButton{
				{Text: label, CallbackData: fmt.Sprintf("mark:%d:u", att.ID)},
			},
			[]models.InlineKeyboardButton{
				{Text: "✅", CallbackData: fmt.Sprintf("mark:%d:p", att.ID)},
				{Text: "❌", CallbackData: fmt.Sprintf("mark:%d:a", att.ID)},
				{Text: "⚠️", CallbackData: fmt.Sprintf("mark:%d:w", att.ID)},
			},
		)
	}

	markup := &models.InlineKeyboardMarkup{InlineKeyboard: rows}

	if messageID != 0 {
		_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ReplyMarkup: markup,
		})
	} else {
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        text,
			ReplyMarkup: markup,
		})
	}

	return err
}

// decodeMark разбирает код отметки из callback data
func decodeMark(code string) (appmodel.AttendanceStatus, *bool, error) {
	warned := true
	notWarned := false

	switch code {
	case "p":
		return appmodel.AttendanceStatusPresent, nil, nil
	case "a":
		return appmodel.AttendanceStatusAbsent, &notWarned, nil
	case "w":
		return appmodel.AttendanceStatusAbsent, &warned, nil
	case "u":
		return appmodel.AttendanceStatusUnspecified, nil, nil
	default:
		return "", nil, fmt.Errorf("unknown mark code %q", code)
	}
}

// statusEmoji значок текущего статуса отметки
func statusEmoji(att *appmodel.Attendance) string {
	switch att.Status {
	case appmodel.AttendanceStatusPresent:
		return "✅"
	case appmodel.AttendanceStatusAbsent:
		if att.IsWarned != nil && *att.IsWarned {
			return "⚠️"
		}
		return "❌"
	default:
		return "▫️"
	}
}

// weekdayName русское название дня недели (0 = воскресенье)
func weekdayName(weekday int) string {
	names := [7]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}
	if weekday < 0 || weekday > 6 {
		return "?"
	}
	return names[weekday]
}
