package match

import (
	"github.com/courtside/livescore/go/internal/models"
)

// SelectForScoring marks the player that AddPoints, AddFoul and the undo
// operations apply to.
func (s *Session) SelectForScoring(id string) error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if _, ok := s.state.Players[id]; !ok {
		return reject("Unknown player")
	}
	s.selected = id
	return nil
}

// AddPoints credits delta (1, 2 or 3) to the selected on-court player.
func (s *Session) AddPoints(delta int) error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if delta < 1 || delta > 3 {
		return reject("Points must be 1, 2 or 3")
	}
	id, p, err := s.selectedOnCourt()
	if err != nil {
		return err
	}
	s.state.Ledger[id] = append(s.state.Ledger[id], models.LedgerEvent{
		Kind:   models.LedgerPoints,
		Delta:  delta,
		Period: s.state.PeriodKey(),
		At:     s.clock.Now().UnixMilli(),
	})
	s.recompute()
	s.notify("+%d points for %s", delta, p.Name)
	return nil
}

// UndoLastScore removes the selected player's most recent scoring event.
func (s *Session) UndoLastScore() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if s.selected == "" {
		return reject("Please select a player first!")
	}
	id := s.selected
	events := s.state.Ledger[id]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != models.LedgerPoints {
			continue
		}
		delta := events[i].Delta
		s.state.Ledger[id] = append(events[:i:i], events[i+1:]...)
		s.recompute()
		s.notify("Undo: -%d points", delta)
		return nil
	}
	return reject("No score to undo")
}

func (s *Session) selectedOnCourt() (string, models.SessionPlayer, error) {
	if s.selected == "" {
		return "", models.SessionPlayer{}, reject("Please select a player first!")
	}
	p, ok := s.state.Players[s.selected]
	if !ok {
		return "", models.SessionPlayer{}, reject("Unknown player")
	}
	if s.state.IsDisqualified(s.selected) {
		return "", models.SessionPlayer{}, reject("%s is disqualified", p.Name)
	}
	if !s.state.IsOnCourt(s.selected) {
		return "", models.SessionPlayer{}, reject("%s is not on court", p.Name)
	}
	return s.selected, p, nil
}

// recompute derives player points, team scores and per-period scores from
// the ledger. Team totals are never adjusted any other way.
func (s *Session) recompute() {
	periods := make(map[string]models.PeriodScore, len(s.state.QuarterScores))
	for k := range s.state.QuarterScores {
		periods[k] = models.PeriodScore{}
	}
	if _, ok := periods[s.state.PeriodKey()]; !ok {
		periods[s.state.PeriodKey()] = models.PeriodScore{}
	}

	totals := models.PeriodScore{}
	for id, p := range s.state.Players {
		points := 0
		for _, ev := range s.state.Ledger[id] {
			if ev.Kind != models.LedgerPoints {
				continue
			}
			points += ev.Delta
			if ev.Period != "" {
				ps := periods[ev.Period]
				periods[ev.Period] = ps.Set(p.Team, ps.Get(p.Team)+ev.Delta)
			}
		}
		p.Points = points
		s.state.Players[id] = p
		totals = totals.Set(p.Team, totals.Get(p.Team)+points)
	}
	s.state.ScoreA = totals.TeamA
	s.state.ScoreB = totals.TeamB
	s.state.QuarterScores = periods
	s.updateBonus()
}
