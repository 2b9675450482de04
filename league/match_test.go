package league

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	return time.FixedZone("MSK", 3*60*60)
}

func TestParseMatch(t *testing.T) {
	loc := moscow(t)
	raw := json.RawMessage(`{
		"id": 42, "date": "2026-10-14", "time": "19:30:00",
		"team_a_id": 1, "team_b_id": 2, "location": "Арена",
		"score_team_a": null, "score_team_b": null,
		"video_url": "https://vk.com/video1", "extra": "ignored"
	}`)

	m, err := ParseMatch(raw, loc)
	require.NoError(t, err)
	assert.Equal(t, 42, m.ID)
	assert.True(t, m.ScheduledAt.Equal(time.Date(2026, 10, 14, 16, 30, 0, 0, time.UTC)))
	assert.Equal(t, 1, m.TeamAID)
	assert.Equal(t, 2, m.TeamBID)
	assert.Equal(t, "Арена", m.Location)
	assert.Nil(t, m.ScoreA)
	assert.Nil(t, m.ScoreB)
	assert.False(t, m.HasScore())
	assert.Equal(t, "https://vk.com/video1", m.VideoURL)
}

func TestParseMatch_Scores(t *testing.T) {
	raw := json.RawMessage(`{"id": 7, "date": "2026-10-01", "time": "12:00", "team_a_id": 1, "team_b_id": 2, "score_team_a": 4, "score_team_b": 0}`)

	m, err := ParseMatch(raw, time.UTC)
	require.NoError(t, err)
	require.True(t, m.HasScore())
	assert.Equal(t, 4, *m.ScoreA)
	assert.Equal(t, 0, *m.ScoreB)
	assert.Equal(t, 12, m.ScheduledAt.Hour())
}

func TestParseMatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an object", `[1, 2]`},
		{"missing id", `{"date": "2026-10-14", "time": "19:30:00"}`},
		{"bad date", `{"id": 1, "date": "14.10.2026", "time": "19:30:00"}`},
		{"missing time", `{"id": 1, "date": "2026-10-14"}`},
		{"bad time", `{"id": 1, "date": "2026-10-14", "time": "25:00:00"}`},
		{"time wrong type", `{"id": 1, "date": "2026-10-14", "time": 1930}`},
		{"bad video url", `{"id": 1, "date": "2026-10-14", "time": "19:30:00", "video_url": "not a url"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMatch(json.RawMessage(tt.raw), time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestParseTeam(t *testing.T) {
	team, err := ParseTeam(json.RawMessage(`{"id": 3, "slug": "zvezda", "name": "Звезда", "logo": "x.png"}`))
	require.NoError(t, err)
	assert.Equal(t, Team{ID: 3, Slug: "zvezda", Name: "Звезда"}, team)

	_, err = ParseTeam(json.RawMessage(`{"id": 3, "slug": "zvezda"}`))
	assert.Error(t, err)

	_, err = ParseTeam(json.RawMessage(`{"slug": "zvezda", "name": "Звезда"}`))
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:05")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 5}, tod)
	assert.Equal(t, "07:05:00", tod.String())

	tod, err = ParseTimeOfDay("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 23, Minute: 59, Second: 59}, tod)

	for _, bad := range []string{"", "7", "aa:bb", "12:60", "12:00:60", "-1:00", "1:2:3:4"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"18:45:00"`), &tod))
	out, err := json.Marshal(tod)
	require.NoError(t, err)
	assert.Equal(t, `"18:45:00"`, string(out))
}
