package match

import (
	"github.com/courtside/livescore/go/internal/models"
)

// BeginSubstitution opens the two-step substitution flow for a team and
// pauses the clock until it is committed or cancelled.
func (s *Session) BeginSubstitution(team models.Team) error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if !validTeam(team) {
		return reject("Unknown team")
	}
	if s.state.PendingSubstitution != nil {
		return reject("A substitution is already in progress")
	}
	if len(s.eligibleBench(team)) == 0 {
		return reject("No eligible substitutes for %s", s.teamLabel(team))
	}
	s.state.PendingSubstitution = &models.Substitution{
		Team:        team,
		ResumeClock: s.state.IsRunning,
	}
	s.state.IsRunning = false
	return nil
}

// ChooseOut picks the on-court player leaving the game.
func (s *Session) ChooseOut(id string) error {
	sub, err := s.pendingSubstitution()
	if err != nil {
		return err
	}
	if sub.Forced {
		return reject("Select a replacement for the disqualified player")
	}
	p, ok := s.state.Players[id]
	if !ok || p.Team != sub.Team || !s.state.IsOnCourt(id) {
		return reject("Player is not on court for %s", s.teamLabel(sub.Team))
	}
	sub.OutID = id
	return nil
}

// ChooseIn picks the bench player coming on and commits the substitution.
func (s *Session) ChooseIn(id string) error {
	sub, err := s.pendingSubstitution()
	if err != nil {
		return err
	}
	if sub.OutID == "" {
		return reject("Select the player going out first")
	}
	if !contains(s.eligibleBench(sub.Team), id) {
		if s.state.IsDisqualified(id) {
			return reject("Disqualified players cannot return")
		}
		return reject("Player is not an eligible substitute")
	}
	s.commitSubstitution(id)
	return nil
}

// CancelSubstitution abandons a voluntary substitution. Forced substitutions
// after a disqualification cannot be cancelled.
func (s *Session) CancelSubstitution() error {
	sub, err := s.pendingSubstitution()
	if err != nil {
		return err
	}
	if sub.Forced {
		return reject("A disqualified player must be replaced")
	}
	s.state.PendingSubstitution = nil
	s.resumeAfterSubstitution(sub)
	return nil
}

// EligibleBench lists the players of team t who may come on.
func (s *Session) EligibleBench(t models.Team) []string {
	return s.eligibleBench(t)
}

func (s *Session) pendingSubstitution() (*models.Substitution, error) {
	if err := s.requireStage(models.StageMatch); err != nil {
		return nil, err
	}
	if s.state.PendingSubstitution == nil {
		return nil, reject("No substitution in progress")
	}
	return s.state.PendingSubstitution, nil
}

// commitSubstitution swaps the outgoing id for inID in one step. A forced
// substitution's outgoing player has already left the court, so the
// replacement is appended.
func (s *Session) commitSubstitution(inID string) {
	sub := s.state.PendingSubstitution
	playing := s.state.Playing(sub.Team)
	next := make([]string, 0, len(playing)+1)
	replaced := false
	for _, id := range playing {
		if id == sub.OutID {
			next = append(next, inID)
			replaced = true
			continue
		}
		next = append(next, id)
	}
	if !replaced {
		next = append(next, inID)
	}
	s.state.SetPlaying(sub.Team, next)
	if _, ok := s.state.Ledger[inID]; !ok {
		s.state.Ledger[inID] = []models.LedgerEvent{}
	}
	s.state.PendingSubstitution = nil
	s.notify("%s OUT → %s IN", s.state.Players[sub.OutID].Name, s.state.Players[inID].Name)
	s.resumeAfterSubstitution(sub)
}

func (s *Session) resumeAfterSubstitution(sub *models.Substitution) {
	if sub.ResumeClock && s.state.TimerSeconds > 0 && !s.state.TimeoutActive {
		s.state.IsRunning = true
	}
}

func (s *Session) eligibleBench(t models.Team) []string {
	var out []string
	for _, id := range s.state.Roster(t) {
		if s.state.IsOnCourt(id) || s.state.IsDisqualified(id) {
			continue
		}
		if s.state.Players[id].Fouls >= s.settings.FoulLimit {
			continue
		}
		out = append(out, id)
	}
	return out
}

func validTeam(t models.Team) bool {
	return t == models.TeamA || t == models.TeamB
}
