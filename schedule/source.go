package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alufers/stars-league-bot/league"
)

// Fetcher returns raw endpoint arrays. *Client implements it.
type Fetcher interface {
	Teams(ctx context.Context) ([]json.RawMessage, error)
	Games(ctx context.Context) ([]json.RawMessage, error)
}

// Source is the process-wide view of the league schedule. It is safe for
// concurrent use by the scheduler and the bot handlers.
type Source struct {
	fetcher  Fetcher
	loc      *time.Location
	teamsTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time

	teams   Cache[league.Team]
	matches Cache[league.Match]
}

// NewSource creates a Source. Kickoff times are read in loc.
func NewSource(fetcher Fetcher, loc *time.Location, teamsTTL time.Duration, logger *zap.Logger) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		fetcher:  fetcher,
		loc:      loc,
		teamsTTL: teamsTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchTeams returns the team list, refetching when forced or when the cached
// list is older than the TTL. On failure the previous list (possibly empty) is
// returned.
func (s *Source) FetchTeams(ctx context.Context, force bool) []league.Team {
	if !force && s.teams.Fresh(s.now(), s.teamsTTL) {
		teams, _, _ := s.teams.Load()
		return teams
	}
	teams, err := s.RefreshTeams(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch teams", zap.Error(err))
		cached, _, _ := s.teams.Load()
		return cached
	}
	return teams
}

// RefreshTeams refetches the team list unconditionally.
func (s *Source) RefreshTeams(ctx context.Context) ([]league.Team, error) {
	raw, err := s.fetcher.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch teams: %w", err)
	}
	teams := make([]league.Team, 0, len(raw))
	for i, r := range raw {
		t, err := league.ParseTeam(r)
		if err != nil {
			s.logger.Warn("Skipping invalid team record", zap.Int("index", i), zap.Error(err))
			continue
		}
		teams = append(teams, t)
	}
	s.teams.Store(teams, s.now())
	return teams, nil
}

// FetchMatches always refetches the games list. An empty result means no data
// is available right now, not that no matches exist.
func (s *Source) FetchMatches(ctx context.Context) []league.Match {
	matches, err := s.refreshMatches(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch games", zap.Error(err))
		return nil
	}
	return matches
}

func (s *Source) refreshMatches(ctx context.Context) ([]league.Match, error) {
	raw, err := s.fetcher.Games(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}
	matches := make([]league.Match, 0, len(raw))
	for i, r := range raw {
		m, err := league.ParseMatch(r, s.loc)
		if err != nil {
			s.logger.Warn("Skipping invalid game record", zap.Int("index", i), zap.Error(err))
			continue
		}
		matches = append(matches, m)
	}
	s.matches.Store(matches, s.now())
	return matches, nil
}

// latestMatches refreshes the games list and falls back to the last snapshot
// when the API is unavailable. Used by interactive listings only.
func (s *Source) latestMatches(ctx context.Context) []league.Match {
	matches, err := s.refreshMatches(ctx)
	if err == nil {
		return matches
	}
	cached, at, ok := s.matches.Load()
	s.logger.Warn("Failed to fetch games, using cached list",
		zap.Error(err), zap.Bool("cached", ok), zap.Time("fetched_at", at))
	return cached
}

// TeamByID looks a team up in the cached team list.
func (s *Source) TeamByID(ctx context.Context, id int) (league.Team, bool) {
	for _, t := range s.FetchTeams(ctx, false) {
		if t.ID == id {
			return t, true
		}
	}
	return league.Team{}, false
}

// TeamBySlug looks a team up in the cached team list.
func (s *Source) TeamBySlug(ctx context.Context, slug string) (league.Team, bool) {
	for _, t := range s.FetchTeams(ctx, false) {
		if t.Slug == slug {
			return t, true
		}
	}
	return league.Team{}, false
}

// MatchByID looks a match up in the last fetched games list, fetching it once
// if nothing has been fetched yet.
func (s *Source) MatchByID(ctx context.Context, id int) (league.Match, bool) {
	matches, _, ok := s.matches.Load()
	if !ok {
		matches = s.latestMatches(ctx)
	}
	for _, m := range matches {
		if m.ID == id {
			return m, true
		}
	}
	return league.Match{}, false
}

// Enrich joins matches with their teams. Unknown team ids get placeholder names.
func (s *Source) Enrich(ctx context.Context, matches ...league.Match) []league.Game {
	byID := make(map[int]league.Team)
	for _, t := range s.FetchTeams(ctx, false) {
		byID[t.ID] = t
	}
	games := make([]league.Game, 0, len(matches))
	for _, m := range matches {
		g := league.Game{Match: m}
		if t, ok := byID[m.TeamAID]; ok {
			g.TeamA = t
		} else {
			g.TeamA = league.Team{ID: m.TeamAID, Name: league.PlaceholderTeamA}
		}
		if t, ok := byID[m.TeamBID]; ok {
			g.TeamB = t
		} else {
			g.TeamB = league.Team{ID: m.TeamBID, Name: league.PlaceholderTeamB}
		}
		games = append(games, g)
	}
	return games
}

// UpcomingGames returns games that have not kicked off yet, earliest first.
func (s *Source) UpcomingGames(ctx context.Context, now time.Time) []league.Game {
	var upcoming []league.Match
	for _, m := range s.latestMatches(ctx) {
		if league.IsUpcoming(m, now) {
			upcoming = append(upcoming, m)
		}
	}
	games := s.Enrich(ctx, upcoming...)
	league.SortUpcoming(games)
	return games
}

// FinishedGames returns games with a published score, latest first.
func (s *Source) FinishedGames(ctx context.Context, now time.Time) []league.Game {
	var finished []league.Match
	for _, m := range s.latestMatches(ctx) {
		if league.IsFinished(m, now) {
			finished = append(finished, m)
		}
	}
	games := s.Enrich(ctx, finished...)
	league.SortFinished(games)
	return games
}
