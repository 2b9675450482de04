// Package notify sends match reminders to subscribers and runs the periodic
// scheduler that decides when to send them.
package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alufers/stars-league-bot/league"
)

// Message is a rendered notification. LinkURL, when set, is attached as an
// inline URL button.
type Message struct {
	Text     string
	LinkText string
	LinkURL  string
}

// ReminderMessage builds the upcoming match reminder for g.
func ReminderMessage(f league.Formatter, g league.Game) Message {
	msg := Message{Text: f.Reminder(g)}
	if g.VideoURL != "" {
		msg.LinkText = "🎥 Смотреть трансляцию"
		msg.LinkURL = g.VideoURL
	}
	return msg
}

// Config converts the message into a Telegram send request for chatID.
func (m Message) Config(chatID int64) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(chatID, m.Text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if m.LinkURL != "" {
		text := m.LinkText
		if text == "" {
			text = m.LinkURL
		}
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(text, m.LinkURL)),
		)
	}
	return cfg
}
