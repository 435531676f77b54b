package match

import (
	"strings"

	"github.com/google/uuid"

	"github.com/courtside/livescore/go/internal/models"
)

// PlayerInput describes a roster entry added during setup.
type PlayerInput struct {
	ID     string
	Name   string
	Jersey string
	Team   models.Team
}

// MatchInfo carries the fixture details a session is set up from.
type MatchInfo struct {
	MatchID    string
	ScheduleID string
	TeamA      string
	TeamB      string
	MatchType  string
	RoundType  string
}

// EnterSetup moves from the menu (or back from playing-five selection) into
// roster setup.
func (s *Session) EnterSetup() error {
	switch s.state.MatchStage {
	case models.StageMenu:
		if s.hasPreservedMatch() {
			return reject("A match is in progress. Resume or discard it first")
		}
	case models.StageSelectPlaying5, models.StageFinished:
	default:
		return reject("Not available during %s", s.state.MatchStage)
	}
	if s.state.MatchStage == models.StageFinished {
		s.state = s.blank(s.state.Court)
	}
	s.state.MatchStage = models.StageSetup
	s.state.PreviousStage = ""
	return nil
}

// Load replaces the setup with a scheduled fixture and its roster.
func (s *Session) Load(info MatchInfo, players []PlayerInput) error {
	if err := s.requireStage(models.StageSetup); err != nil {
		return err
	}
	next := s.blank(s.state.Court)
	next.MatchStage = models.StageSetup
	next.MatchID = info.MatchID
	next.ScheduleID = info.ScheduleID
	next.TeamA = strings.TrimSpace(info.TeamA)
	next.TeamB = strings.TrimSpace(info.TeamB)
	if info.MatchType != "" {
		next.MatchType = info.MatchType
	}
	if info.RoundType != "" {
		next.RoundType = info.RoundType
	}
	prev := s.state
	s.state = next
	if _, err := s.ImportPlayers(players); err != nil {
		s.state = prev
		return err
	}
	return nil
}

// SetTeams sets both display names.
func (s *Session) SetTeams(teamA, teamB string) error {
	if err := s.requireStage(models.StageSetup); err != nil {
		return err
	}
	teamA, teamB = strings.TrimSpace(teamA), strings.TrimSpace(teamB)
	if teamA == "" || teamB == "" {
		return reject("Please enter both team names")
	}
	if strings.EqualFold(teamA, teamB) {
		return reject("Team names must be different")
	}
	s.state.TeamA = teamA
	s.state.TeamB = teamB
	return nil
}

// SetMatchDetails updates match type, round type and court label.
func (s *Session) SetMatchDetails(matchType, roundType, court string) error {
	if err := s.requireStage(models.StageSetup); err != nil {
		return err
	}
	if matchType != "" {
		s.state.MatchType = matchType
	}
	if roundType != "" {
		s.state.RoundType = roundType
	}
	if court != "" {
		s.state.Court = court
	}
	return nil
}

// AddPlayer adds one roster entry and returns its id.
func (s *Session) AddPlayer(in PlayerInput) (string, error) {
	if err := s.requireStage(models.StageSetup); err != nil {
		return "", err
	}
	return s.addPlayer(in)
}

func (s *Session) addPlayer(in PlayerInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", reject("Player name is required")
	}
	team := in.Team
	if team != models.TeamB {
		team = models.TeamA
	}
	jersey := strings.TrimSpace(in.Jersey)
	if jersey != "" {
		for _, p := range s.state.Players {
			if p.Team == team && p.Jersey == jersey {
				return "", reject("Jersey %s is already taken on %s", jersey, s.teamLabel(team))
			}
		}
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.state.Players[id]; exists {
		return "", reject("Player %s already exists", id)
	}
	s.state.Players[id] = models.SessionPlayer{Name: name, Jersey: jersey, Team: team}
	return id, nil
}

// ImportPlayers adds many players at once. Entries without a name are
// skipped; the number added is returned. Nothing is added if any named entry
// is rejected.
func (s *Session) ImportPlayers(in []PlayerInput) (int, error) {
	if err := s.requireStage(models.StageSetup); err != nil {
		return 0, err
	}
	before := s.state.Clone()
	added := 0
	for _, p := range in {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		if _, err := s.addPlayer(p); err != nil {
			s.state = before
			return 0, err
		}
		added++
	}
	return added, nil
}

// RemovePlayer deletes a roster entry before the match starts.
func (s *Session) RemovePlayer(id string) error {
	if s.state.MatchStage != models.StageSetup && s.state.MatchStage != models.StageSelectPlaying5 {
		return reject("Players can only be removed before the match starts")
	}
	p, ok := s.state.Players[id]
	if !ok {
		return reject("Unknown player")
	}
	delete(s.state.Players, id)
	delete(s.state.Ledger, id)
	s.state.SetPlaying(p.Team, without(s.state.Playing(p.Team), id))
	return nil
}

// ProceedToSelectPlaying5 requires team names and at least five players per
// team, and clears any previous on-court selection.
func (s *Session) ProceedToSelectPlaying5() error {
	if err := s.requireStage(models.StageSetup); err != nil {
		return err
	}
	if s.state.TeamA == "" || s.state.TeamB == "" {
		return reject("Please enter both team names")
	}
	for _, team := range []models.Team{models.TeamA, models.TeamB} {
		if n := len(s.state.Roster(team)); n < s.settings.OnCourt {
			return reject("%s needs at least %d players (has %d)", s.teamLabel(team), s.settings.OnCourt, n)
		}
	}
	s.state.TeamAPlaying = []string{}
	s.state.TeamBPlaying = []string{}
	s.state.MatchStage = models.StageSelectPlaying5
	return nil
}

// TogglePlaying selects or deselects a player for the starting five.
func (s *Session) TogglePlaying(id string) error {
	if err := s.requireStage(models.StageSelectPlaying5); err != nil {
		return err
	}
	p, ok := s.state.Players[id]
	if !ok {
		return reject("Unknown player")
	}
	playing := s.state.Playing(p.Team)
	if contains(playing, id) {
		s.state.SetPlaying(p.Team, without(playing, id))
		return nil
	}
	if len(playing) >= s.settings.OnCourt {
		return reject("Maximum %d players per team", s.settings.OnCourt)
	}
	s.state.SetPlaying(p.Team, append(append([]string{}, playing...), id))
	return nil
}

// StartMatch enters the match stage with the clock running.
func (s *Session) StartMatch() error {
	if err := s.requireStage(models.StageSelectPlaying5); err != nil {
		return err
	}
	if len(s.state.TeamAPlaying) != s.settings.OnCourt || len(s.state.TeamBPlaying) != s.settings.OnCourt {
		return reject("Please select exactly %d players per team", s.settings.OnCourt)
	}
	s.state.MatchStage = models.StageMatch
	s.state.Quarter = 1
	s.state.IsOvertime = false
	s.state.TimerSeconds = s.periodSeconds()
	s.state.IsRunning = true
	s.recompute()
	s.notify("Match started!")
	return nil
}

// BackToMenu leaves the current stage without discarding anything. The clock
// is paused; Resume returns to where the scorer left off.
func (s *Session) BackToMenu() error {
	if s.state.MatchStage == models.StageMenu {
		return nil
	}
	if s.state.MatchStage != models.StageFinished {
		s.state.PreviousStage = s.state.MatchStage
	}
	s.state.MatchStage = models.StageMenu
	s.state.IsRunning = false
	s.selected = ""
	return nil
}

// Resume returns from the menu to the stage that was left.
func (s *Session) Resume() error {
	if err := s.requireStage(models.StageMenu); err != nil {
		return err
	}
	if !s.hasPreservedMatch() {
		return reject("No match to resume")
	}
	s.state.MatchStage = s.state.PreviousStage
	s.state.PreviousStage = ""
	return nil
}

// Finish ends play. The state is kept so it can be saved.
func (s *Session) Finish() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	s.state.MatchStage = models.StageFinished
	s.state.IsRunning = false
	s.state.TimeoutActive = false
	s.state.TimeoutTeam = ""
	s.state.PendingSubstitution = nil
	s.selected = ""
	s.notify("Match finished!")
	return nil
}

// Reset discards the match and returns to an empty menu on the same court.
func (s *Session) Reset() {
	s.state = s.blank(s.state.Court)
	s.selected = ""
}

func (s *Session) hasPreservedMatch() bool {
	switch s.state.PreviousStage {
	case models.StageSetup, models.StageSelectPlaying5, models.StageMatch:
		return true
	}
	return false
}

func (s *Session) teamLabel(t models.Team) string {
	if name := s.state.TeamName(t); name != "" {
		return name
	}
	return "Team " + string(t)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
