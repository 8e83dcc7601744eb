package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/selfdestroying/eduda-sub001/internal/repository"
	"github.com/selfdestroying/eduda-sub001/internal/service"
	"go.uber.org/zap"
)

// BotController телеграм-интерфейс для преподавателей: отметка
// посещаемости, балансы учеников и отчёты по пропускам
type BotController struct {
	bot               *bot.Bot
	ledgerService     *service.LedgerService
	scheduleService   *service.ScheduleService
	reportService     *service.ReportService
	enrollmentService *service.EnrollmentService
	makeupService     *service.MakeUpService
	attendanceRepo    *repository.AttendanceRepository
	historyRepo       *repository.HistoryRepository
	clock             service.Clock
	logger            *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	ledgerService *service.LedgerService,
	scheduleService *service.ScheduleService,
	reportService *service.ReportService,
	enrollmentService *service.EnrollmentService,
	makeupService *service.MakeUpService,
	attendanceRepo *repository.AttendanceRepository,
	historyRepo *repository.HistoryRepository,
	clock service.Clock,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:               botInstance,
		ledgerService:     ledgerService,
		scheduleService:   scheduleService,
		reportService:     reportService,
		enrollmentService: enrollmentService,
		makeupService:     makeupService,
		attendanceRepo:    attendanceRepo,
		historyRepo:       historyRepo,
		clock:             clock,
		logger:            logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/groups", bot.MatchTypeExact, c.handleGroups)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/balance", bot.MatchTypePrefix, c.handleBalance)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/report", bot.MatchTypeExact, c.handleWeekReport)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reportmonth", bot.MatchTypeExact, c.handleMonthReport)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/dismissals", bot.MatchTypeExact, c.handleDismissals)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, c.handleHistory)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/payments", bot.MatchTypePrefix, c.handlePayments)

	// Команды для администраторов
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newstudent", bot.MatchTypePrefix, c.handleNewStudent)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newgroup", bot.MatchTypePrefix, c.handleNewGroup)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reschedule", bot.MatchTypePrefix, c.handleReschedule)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancellesson", bot.MatchTypePrefix, c.handleCancelLesson)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/enroll", bot.MatchTypePrefix, c.handleEnroll)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/unenroll", bot.MatchTypePrefix, c.handleUnenroll)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/saved", bot.MatchTypePrefix, c.handleMakeUpSaved)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/makeup", bot.MatchTypePrefix, c.handleMakeUp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/unmakeup", bot.MatchTypePrefix, c.handleUnMakeUp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pay", bot.MatchTypePrefix, c.handlePay)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "groups", Description: "📚 Группы и отметка посещаемости"},
		{Command: "balance", Description: "💰 Баланс ученика: /balance <id>"},
		{Command: "history", Description: "📜 История баланса: /history <ученик> <группа>"},
		{Command: "report", Description: "📊 Пропуски по неделям"},
		{Command: "reportmonth", Description: "📊 Пропуски по месяцам"},
		{Command: "dismissals", Description: "📉 Отток учеников по неделям"},
		{Command: "enroll", Description: "➕ Зачислить: /enroll <ученик> <группа>"},
		{Command: "makeup", Description: "🔁 Отработка: /makeup <пропуск> <отметка>"},
		{Command: "pay", Description: "💳 Оплата: /pay <членство> <сумма> <занятий>"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
