package match

import (
	"github.com/courtside/livescore/go/internal/models"
)

// AddFoul charges a personal foul to the selected player and a team foul to
// the current period. At the foul limit the player is disqualified, taken off
// court, the clock stops, and a forced substitution begins.
func (s *Session) AddFoul() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if sub := s.state.PendingSubstitution; sub != nil && sub.Forced {
		return reject("Replace the disqualified player for %s first", s.teamLabel(sub.Team))
	}
	id, p, err := s.selectedOnCourt()
	if err != nil {
		return err
	}

	period := s.state.PeriodKey()
	p.Fouls++
	s.state.Players[id] = p
	s.state.Ledger[id] = append(s.state.Ledger[id], models.LedgerEvent{
		Kind:   models.LedgerFoul,
		Delta:  1,
		Period: period,
		At:     s.clock.Now().UnixMilli(),
	})
	s.state.TeamFouls.Set(p.Team, period, s.state.TeamFouls.Get(p.Team, period)+1)
	s.updateBonus()

	if p.Fouls < s.settings.FoulLimit {
		s.notify("Foul added to %s (%d/%d)", p.Name, p.Fouls, s.settings.FoulLimit)
		return nil
	}
	s.disqualify(id, p)
	return nil
}

// UndoFoul removes the selected player's most recent foul. A player who has
// been disqualified stays disqualified.
func (s *Session) UndoFoul() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if s.selected == "" {
		return reject("Please select a player first!")
	}
	id := s.selected
	p, ok := s.state.Players[id]
	if !ok {
		return reject("Unknown player")
	}
	if p.Fouls == 0 {
		return reject("No foul to undo")
	}
	events := s.state.Ledger[id]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != models.LedgerFoul {
			continue
		}
		period := events[i].Period
		s.state.Ledger[id] = append(events[:i:i], events[i+1:]...)
		if n := s.state.TeamFouls.Get(p.Team, period); n > 0 {
			s.state.TeamFouls.Set(p.Team, period, n-1)
		}
		break
	}
	p.Fouls--
	s.state.Players[id] = p
	s.updateBonus()
	s.notify("Undo: Foul removed from %s", p.Name)
	return nil
}

// InBonus reports whether team t has reached the team-foul penalty for the
// current period.
func (s *Session) InBonus(t models.Team) bool {
	return s.settings.TeamFoulBonus > 0 &&
		s.state.TeamFouls.Get(t, s.state.PeriodKey()) >= s.settings.TeamFoulBonus
}

func (s *Session) updateBonus() {
	s.state.Bonus = models.Bonus{
		TeamA: s.InBonus(models.TeamA),
		TeamB: s.InBonus(models.TeamB),
	}
}

func (s *Session) disqualify(id string, p models.SessionPlayer) {
	wasRunning := s.state.IsRunning
	s.state.Disqualified = append(s.state.Disqualified, id)
	s.state.SetPlaying(p.Team, without(s.state.Playing(p.Team), id))
	s.state.IsRunning = false
	s.selected = ""
	s.notify("Player %s DISQUALIFIED! %d fouls.", p.Name, p.Fouls)

	// The forced substitution replaces any voluntary one in progress. The
	// clock resumes afterwards if it was running before either began.
	if sub := s.state.PendingSubstitution; sub != nil && !sub.Forced {
		wasRunning = wasRunning || sub.ResumeClock
		s.notify("Substitution for %s cancelled", s.teamLabel(sub.Team))
	}
	s.state.PendingSubstitution = &models.Substitution{
		Team:        p.Team,
		OutID:       id,
		Forced:      true,
		ResumeClock: wasRunning,
	}

	bench := s.eligibleBench(p.Team)
	switch len(bench) {
	case 0:
		s.state.PendingSubstitution = nil
		s.notify("No eligible substitutes for %s", s.teamLabel(p.Team))
	case 1:
		s.commitSubstitution(bench[0])
	default:
		s.notify("Please substitute %s", p.Name)
	}
}
