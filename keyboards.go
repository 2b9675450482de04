package main

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	btnMatches      = "🏒 Матчи"
	btnNextMatches  = "➡️ Следующие 3 матча"
	btnResults      = "🏁 Последние результаты"
	btnEnableNotif  = "🔔 Включить уведомления"
	btnDisableNotif = "🔕 Отключить уведомления"
	btnStandings    = "📊 Турнирная таблица"
	btnLeaders      = "🏆 Лучшие игроки"
	btnMainMenu     = "🏠 Главное меню"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMatches)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func matchesMenuKeyboard(notificationsEnabled bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := btnEnableNotif
	if notificationsEnabled {
		toggle = btnDisableNotif
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(toggle)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnNextMatches),
			tgbotapi.NewKeyboardButton(btnResults),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStandings),
			tgbotapi.NewKeyboardButton(btnLeaders),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMainMenu)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func backToMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMainMenu)),
	)
	kb.ResizeKeyboard = true
	return kb
}
