package match

import (
	"github.com/courtside/livescore/go/internal/models"
)

// StartClock starts the main countdown.
func (s *Session) StartClock() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	switch {
	case s.state.TimeoutActive:
		return reject("Timeout in progress")
	case s.state.PendingSubstitution != nil:
		return reject("Complete the substitution first")
	case s.state.TimerSeconds == 0:
		return reject("Period has ended")
	}
	s.state.IsRunning = true
	return nil
}

// PauseClock stops the main countdown.
func (s *Session) PauseClock() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	s.state.IsRunning = false
	return nil
}

// ResetClock restores the full period length and stops the clock.
func (s *Session) ResetClock() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	s.state.IsRunning = false
	s.state.TimerSeconds = s.periodSeconds()
	return nil
}

// SetQuarterDuration changes the regulation period length. The running
// period is not rescaled; the new length applies from the next reset.
func (s *Session) SetQuarterDuration(minutes int) error {
	if s.state.MatchStage != models.StageSetup && s.state.MatchStage != models.StageMatch {
		return reject("Not available during %s", s.state.MatchStage)
	}
	if minutes < 1 || minutes > 20 {
		return reject("Quarter duration must be between 1 and 20 minutes")
	}
	s.state.QuarterDuration = minutes
	if s.state.MatchStage == models.StageSetup {
		s.state.TimerSeconds = minutes * 60
	}
	return nil
}

// Tick advances whichever clock is active by one second and reports whether
// the state changed. The timeout clock takes precedence; the two never run
// together.
func (s *Session) Tick() bool {
	if s.state.MatchStage != models.StageMatch {
		return false
	}
	if s.state.TimeoutActive {
		s.tickTimeout()
		return true
	}
	if !s.state.IsRunning || s.state.TimerSeconds <= 0 {
		return false
	}
	s.state.TimerSeconds--
	if s.state.TimerSeconds == 0 {
		s.state.IsRunning = false
		s.endPeriod()
	}
	return true
}

// Ticking reports whether a clock needs one-second ticks.
func (s *Session) Ticking() bool {
	if s.state.MatchStage != models.StageMatch {
		return false
	}
	return s.state.TimeoutActive || (s.state.IsRunning && s.state.TimerSeconds > 0)
}

// EndPeriodEarly closes the current period as if the clock had expired.
func (s *Session) EndPeriodEarly() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if s.state.TimerSeconds == 0 {
		return reject("Period has already ended")
	}
	if s.state.TimeoutActive {
		return reject("Timeout in progress")
	}
	s.state.IsRunning = false
	s.state.TimerSeconds = 0
	s.endPeriod()
	return nil
}

// StartOvertime begins an overtime period. Only allowed once a period from
// Q4 onward has ended with the scores level.
func (s *Session) StartOvertime() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if s.state.Quarter < models.RegulationPeriods || s.state.TimerSeconds != 0 {
		return reject("Overtime is only available after the 4th quarter")
	}
	if s.state.ScoreA != s.state.ScoreB {
		return reject("Overtime requires a tied score")
	}
	s.enterOvertime()
	return nil
}

// ChangeQuarter moves to a regulation quarter manually, with the clock reset
// and stopped.
func (s *Session) ChangeQuarter(quarter int) error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if quarter < 1 || quarter > models.RegulationPeriods {
		return reject("Quarter must be between 1 and %d", models.RegulationPeriods)
	}
	if quarter == s.state.Quarter {
		return reject("Already in Q%d", quarter)
	}
	if s.state.TimeoutActive {
		return reject("Timeout in progress")
	}
	s.closePeriod()
	s.state.Quarter = quarter
	s.state.IsOvertime = false
	s.state.IsRunning = false
	s.state.TimerSeconds = s.periodSeconds()
	s.recompute()
	s.notify("Quarter %d ready", quarter)
	return nil
}

// endPeriod runs once when a period's clock reaches zero.
func (s *Session) endPeriod() {
	s.closePeriod()
	label := periodLabel(s.state.Quarter)
	s.notify("%s ended!", label)

	if s.state.Quarter < models.RegulationPeriods {
		s.state.Quarter++
		s.state.TimerSeconds = s.periodSeconds()
		s.state.IsRunning = false
		s.recompute()
		s.notify("Quarter %d ready", s.state.Quarter)
		return
	}
	if s.state.ScoreA == s.state.ScoreB {
		s.enterOvertime()
		return
	}
	s.notify("Match complete! %s wins %d-%d", models.Winner(s.state), max(s.state.ScoreA, s.state.ScoreB), min(s.state.ScoreA, s.state.ScoreB))
}

func (s *Session) enterOvertime() {
	s.closePeriod()
	s.state.Quarter++
	s.state.IsOvertime = true
	s.state.IsRunning = false
	s.state.TimerSeconds = s.periodSeconds()
	key := s.state.PeriodKey()
	s.state.Timeouts.Set(models.TeamA, key, s.settings.OvertimeTimeouts)
	s.state.Timeouts.Set(models.TeamB, key, s.settings.OvertimeTimeouts)
	s.recompute()
	s.notify("Game tied! Overtime %d (%d minutes)", s.state.Quarter-models.RegulationPeriods, s.settings.OvertimeMinutes)
}

// closePeriod makes sure the finishing period has a quarterScores entry,
// even when nobody scored in it. A substitution left open carries over, but
// every period starts with the clock stopped.
func (s *Session) closePeriod() {
	key := s.state.PeriodKey()
	if _, ok := s.state.QuarterScores[key]; !ok {
		s.state.QuarterScores[key] = models.PeriodScore{}
	}
	if sub := s.state.PendingSubstitution; sub != nil {
		sub.ResumeClock = false
	}
}

func periodLabel(quarter int) string {
	if quarter > models.RegulationPeriods {
		return "Overtime"
	}
	return "Quarter"
}
