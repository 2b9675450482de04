// Package league holds the schedule domain: matches and teams as published by
// the league API, the reminder window policy and message formatting.
package league

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const dateLayout = "2006-01-02"

// Match is an immutable snapshot of one scheduled game.
type Match struct {
	ID          int
	ScheduledAt time.Time
	TeamAID     int
	TeamBID     int
	Location    string
	ScoreA      *int
	ScoreB      *int
	VideoURL    string
}

// Team is read-only reference data from the teams endpoint.
type Team struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// gameRecord mirrors one element of the games endpoint payload.
type gameRecord struct {
	ID         int        `json:"id"`
	Date       string     `json:"date"`
	Time       *TimeOfDay `json:"time"`
	TeamAID    int        `json:"team_a_id"`
	TeamBID    int        `json:"team_b_id"`
	Location   string     `json:"location"`
	ScoreTeamA *int       `json:"score_team_a"`
	ScoreTeamB *int       `json:"score_team_b"`
	VideoURL   string     `json:"video_url"`
}

func (r gameRecord) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Min(1)),
		validation.Field(&r.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&r.Time, validation.Required),
		validation.Field(&r.TeamAID, validation.Min(0)),
		validation.Field(&r.TeamBID, validation.Min(0)),
		validation.Field(&r.VideoURL, is.URL),
	)
}

// ParseMatch decodes and validates a single games endpoint record. Kickoff
// date and time are interpreted in the league timezone loc.
func ParseMatch(raw json.RawMessage, loc *time.Location) (Match, error) {
	var rec gameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Match{}, fmt.Errorf("decode game: %w", err)
	}
	if err := rec.validate(); err != nil {
		return Match{}, fmt.Errorf("invalid game %d: %w", rec.ID, err)
	}
	day, err := time.ParseInLocation(dateLayout, rec.Date, loc)
	if err != nil {
		return Match{}, fmt.Errorf("invalid game %d date: %w", rec.ID, err)
	}
	return Match{
		ID:          rec.ID,
		ScheduledAt: rec.Time.On(day, loc),
		TeamAID:     rec.TeamAID,
		TeamBID:     rec.TeamBID,
		Location:    rec.Location,
		ScoreA:      rec.ScoreTeamA,
		ScoreB:      rec.ScoreTeamB,
		VideoURL:    rec.VideoURL,
	}, nil
}

// ParseTeam decodes and validates a single teams endpoint record. Fields other
// than id, slug and name are ignored.
func ParseTeam(raw json.RawMessage) (Team, error) {
	var t Team
	if err := json.Unmarshal(raw, &t); err != nil {
		return Team{}, fmt.Errorf("decode team: %w", err)
	}
	err := validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required, validation.Min(1)),
		validation.Field(&t.Name, validation.Required),
	)
	if err != nil {
		return Team{}, fmt.Errorf("invalid team %d: %w", t.ID, err)
	}
	return t, nil
}

// HasScore reports whether both scores have been published.
func (m Match) HasScore() bool {
	return m.ScoreA != nil && m.ScoreB != nil
}

// Game is a match joined with its resolved teams.
type Game struct {
	Match
	TeamA Team
	TeamB Team
}

// Placeholder names for teams the teams endpoint does not know about.
const (
	PlaceholderTeamA = "Команда A"
	PlaceholderTeamB = "Команда B"
)
