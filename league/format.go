package league

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	DefaultStandingsURL = "https://timeofthestars.ru/zvezdaOtechestva?tab=table"
	DefaultLeadersURL   = "https://timeofthestars.ru/zvezdaOtechestva?tab=bestPlayers"
)

// Formatter renders games as Telegram HTML messages.
type Formatter struct {
	Location     *time.Location
	StandingsURL string
	LeadersURL   string
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

// Link renders an HTML anchor. The URL is escaped as an attribute value, so
// quotes in it cannot break the markup.
func Link(url, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), text)
}

func teamName(t Team, placeholder string) string {
	if t.Name == "" {
		return placeholder
	}
	return t.Name
}

// Game formats a single game card.
func (f Formatter) Game(g Game) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	at := g.ScheduledAt.In(loc)
	location := g.Location
	if location == "" {
		location = "Место не указано"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏟 <b>%s</b> vs <b>%s</b>\n\n",
		esc(teamName(g.TeamA, PlaceholderTeamA)), esc(teamName(g.TeamB, PlaceholderTeamB)))
	fmt.Fprintf(&b, "📅 Дата: %s\n", at.Format("02.01.2006"))
	fmt.Fprintf(&b, "⏰ Время: %s\n", at.Format("15:04"))
	fmt.Fprintf(&b, "📍 Место: %s\n", esc(location))
	if g.HasScore() {
		fmt.Fprintf(&b, "🥅 Счёт: <b>%d : %d</b>\n", *g.ScoreA, *g.ScoreB)
	}
	if g.VideoURL != "" {
		fmt.Fprintf(&b, "\n🎥 %s\n", Link(g.VideoURL, "Ссылка на трансляцию"))
	}
	if f.StandingsURL != "" || f.LeadersURL != "" {
		var links []string
		if f.StandingsURL != "" {
			links = append(links, Link(f.StandingsURL, "Турнирная таблица"))
		}
		if f.LeadersURL != "" {
			links = append(links, Link(f.LeadersURL, "Лучшие игроки"))
		}
		b.WriteString("\n📊 " + strings.Join(links, " | "))
	}
	return b.String()
}

// Reminder formats the upcoming match reminder sent by the scheduler.
func (f Formatter) Reminder(g Game) string {
	return "🔔 <b>Напоминание о предстоящем матче!</b>\n\n" + f.Game(g)
}
