package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alufers/stars-league-bot/league"
	"github.com/alufers/stars-league-bot/notify"
	"github.com/alufers/stars-league-bot/store"
)

const (
	pageSize     = 3
	resultsLimit = 3

	textUserNotFound = "⚠️ Ошибка: пользователь не найден. Попробуйте /start"
	textNoUpcoming   = "📅 Нет информации о предстоящих матчах."
)

type gameLister interface {
	UpcomingGames(ctx context.Context, now time.Time) []league.Game
	FinishedGames(ctx context.Context, now time.Time) []league.Game
}

type subscriberService interface {
	Ensure(ctx context.Context, telegramID int64, userName string) (*store.Subscriber, error)
	Get(ctx context.Context, telegramID int64) (*store.Subscriber, error)
	Toggle(ctx context.Context, telegramID int64) (bool, error)
}

// botHandler answers user messages: the main menu, match listings and the
// notification toggle.
type botHandler struct {
	bot       notify.BotAPI
	games     gameLister
	subs      subscriberService
	formatter league.Formatter
	pager     *pager
	logger    *zap.Logger
	now       func() time.Time
}

func newBotHandler(bot notify.BotAPI, games gameLister, subs subscriberService, formatter league.Formatter, logger *zap.Logger) *botHandler {
	return &botHandler{
		bot:       bot,
		games:     games,
		subs:      subs,
		formatter: formatter,
		pager:     newPager(pageSize),
		logger:    logger,
		now:       time.Now,
	}
}

var botCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Запустить бота"},
	{Command: "matches", Description: "Ближайший матч"},
	{Command: "results", Description: "Последние результаты"},
}

// Run handles updates until the channel is closed or ctx is done.
func (h *botHandler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *botHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while handling update", zap.Any("panic", r), zap.Int("update_id", update.UpdateID))
		}
	}()
	h.logger.Debug("Received message",
		zap.String("user_name", msg.From.UserName),
		zap.Int64("user_id", msg.From.ID),
		zap.String("text", msg.Text))

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
		return
	case "matches":
		h.handleMatches(ctx, msg)
		return
	case "results":
		h.handleResults(ctx, msg)
		return
	}

	switch msg.Text {
	case btnMainMenu:
		h.reply(msg.Chat.ID, "🏠 Главное меню\n\nВыберите нужное действие:", mainMenuKeyboard())
	case btnMatches:
		h.handleMatches(ctx, msg)
	case btnNextMatches:
		h.handleNextMatches(ctx, msg)
	case btnResults:
		h.handleResults(ctx, msg)
	case btnEnableNotif, btnDisableNotif:
		h.handleToggle(ctx, msg)
	case btnStandings:
		h.replyLink(msg.Chat.ID, "📊 Турнирная таблица", h.formatter.StandingsURL)
	case btnLeaders:
		h.replyLink(msg.Chat.ID, "🏆 Лучшие игроки", h.formatter.LeadersURL)
	}
}

func (h *botHandler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.subs.Ensure(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.sendError(msg.Chat.ID, err)
		return
	}
	text := fmt.Sprintf("🏒 Добро пожаловать, %s!\n\n"+
		"Это бот хоккейной лиги Time of the Stars.\n\n"+
		"Здесь вы можете смотреть расписание матчей и включать уведомления о них.\n\n"+
		"Выберите действие из меню ниже:", msg.From.FirstName)
	h.reply(msg.Chat.ID, text, mainMenuKeyboard())
}

// subscriber loads the sender's row, telling the user to /start when missing.
func (h *botHandler) subscriber(ctx context.Context, msg *tgbotapi.Message) (*store.Subscriber, bool) {
	sub, err := h.subs.Get(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.reply(msg.Chat.ID, textUserNotFound, nil)
		} else {
			h.sendError(msg.Chat.ID, err)
		}
		return nil, false
	}
	return sub, true
}

func (h *botHandler) handleMatches(ctx context.Context, msg *tgbotapi.Message) {
	h.pager.Reset(msg.From.ID)
	sub, ok := h.subscriber(ctx, msg)
	if !ok {
		return
	}
	keyboard := matchesMenuKeyboard(sub.NotificationsEnabled)

	upcoming := h.games.UpcomingGames(ctx, h.now())
	if len(upcoming) == 0 {
		h.reply(msg.Chat.ID, textNoUpcoming, keyboard)
		return
	}
	text := "🏒 <b>Ближайший матч:</b>\n\n" + h.formatter.Game(upcoming[0])
	if sub.NotificationsEnabled {
		text += "\n\n🔔 Уведомления включены"
	} else {
		text += "\n\n🔕 Уведомления отключены"
	}
	h.replyHTML(msg.Chat.ID, text, keyboard)
}

func (h *botHandler) handleNextMatches(ctx context.Context, msg *tgbotapi.Message) {
	sub, ok := h.subscriber(ctx, msg)
	if !ok {
		return
	}
	keyboard := matchesMenuKeyboard(sub.NotificationsEnabled)

	upcoming := h.games.UpcomingGames(ctx, h.now())
	if len(upcoming) == 0 {
		h.reply(msg.Chat.ID, textNoUpcoming, keyboard)
		return
	}
	start, end, ok := h.pager.Next(msg.From.ID, len(upcoming))
	if !ok {
		h.reply(msg.Chat.ID, "📅 Больше нет запланированных матчей.", keyboard)
		return
	}
	for _, g := range upcoming[start:end] {
		h.replyHTML(msg.Chat.ID, h.formatter.Game(g), nil)
	}
	if remaining := len(upcoming) - end; remaining > 0 {
		h.reply(msg.Chat.ID, fmt.Sprintf("Ещё %d матчей доступно.", remaining), keyboard)
	} else {
		h.reply(msg.Chat.ID, "Это все запланированные матчи.", keyboard)
	}
}

func (h *botHandler) handleResults(ctx context.Context, msg *tgbotapi.Message) {
	finished := h.games.FinishedGames(ctx, h.now())
	if len(finished) == 0 {
		h.reply(msg.Chat.ID, "🏁 Пока нет сыгранных матчей.", nil)
		return
	}
	if len(finished) > resultsLimit {
		finished = finished[:resultsLimit]
	}
	h.replyHTML(msg.Chat.ID, "🏁 <b>Последние результаты:</b>", nil)
	for _, g := range finished {
		h.replyHTML(msg.Chat.ID, h.formatter.Game(g), nil)
	}
}

func (h *botHandler) handleToggle(ctx context.Context, msg *tgbotapi.Message) {
	enabled, err := h.subs.Toggle(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.reply(msg.Chat.ID, textUserNotFound, nil)
			return
		}
		h.sendError(msg.Chat.ID, err)
		return
	}
	h.logger.Info("Notifications toggled", zap.Int64("user_id", msg.From.ID), zap.Bool("enabled", enabled))
	text := "🔕 Уведомления отключены."
	if enabled {
		text = "✅ Уведомления включены!\n\nВы будете получать уведомления о предстоящих матчах."
	}
	h.reply(msg.Chat.ID, text, matchesMenuKeyboard(enabled))
}

func (h *botHandler) replyLink(chatID int64, title, url string) {
	if url == "" {
		return
	}
	h.replyHTML(chatID, league.Link(url, title), nil)
}

func (h *botHandler) reply(chatID int64, text string, markup any) {
	cfg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		cfg.ReplyMarkup = markup
	}
	h.send(cfg)
}

func (h *botHandler) replyHTML(chatID int64, text string, markup any) {
	cfg := tgbotapi.NewMessage(chatID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if markup != nil {
		cfg.ReplyMarkup = markup
	}
	h.send(cfg)
}

func (h *botHandler) send(cfg tgbotapi.MessageConfig) {
	if _, err := h.bot.Send(cfg); err != nil {
		h.logger.Warn("Failed to send reply", zap.Int64("chat_id", cfg.ChatID), zap.Error(err))
	}
}

func (h *botHandler) sendError(chatID int64, err error) {
	h.logger.Error("Request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	h.reply(chatID, "❌ Произошла ошибка, попробуйте позже.", backToMenuKeyboard())
}
