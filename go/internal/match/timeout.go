package match

import (
	"strconv"

	"github.com/courtside/livescore/go/internal/models"
)

// StartTimeout spends one of the team's timeouts for the current period,
// pauses the main clock and starts the timeout countdown.
func (s *Session) StartTimeout(team models.Team) error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if !validTeam(team) {
		return reject("Unknown team")
	}
	if s.state.TimeoutActive {
		return reject("Timeout already in progress")
	}
	key := s.state.PeriodKey()
	left := s.state.Timeouts.Get(team, key)
	if left <= 0 {
		return reject("No timeouts remaining for %s in %s", s.teamLabel(team), periodName(s.state.Quarter))
	}
	s.state.Timeouts.Set(team, key, left-1)
	s.state.IsRunning = false
	s.state.TimeoutActive = true
	s.state.TimeoutTeam = team
	s.state.TimeoutSeconds = s.settings.TimeoutSeconds
	s.notify("Timeout for %s! %d seconds.", s.teamLabel(team), s.settings.TimeoutSeconds)
	return nil
}

// EndTimeout finishes the active timeout early and resumes play.
func (s *Session) EndTimeout() error {
	if err := s.requireStage(models.StageMatch); err != nil {
		return err
	}
	if !s.state.TimeoutActive {
		return reject("No timeout in progress")
	}
	s.finishTimeout()
	return nil
}

func (s *Session) tickTimeout() {
	if s.state.TimeoutSeconds > 0 {
		s.state.TimeoutSeconds--
	}
	if s.state.TimeoutSeconds == 0 {
		s.finishTimeout()
	}
}

// finishTimeout clears the timeout and restarts the main clock unless the
// period is over or a substitution is still pending.
func (s *Session) finishTimeout() {
	s.state.TimeoutActive = false
	s.state.TimeoutTeam = ""
	s.state.TimeoutSeconds = s.settings.TimeoutSeconds
	if s.state.TimerSeconds > 0 && s.state.PendingSubstitution == nil {
		s.state.IsRunning = true
	}
	s.notify("Timeout ended!")
}

func periodName(quarter int) string {
	if quarter > models.RegulationPeriods {
		return "OT" + strconv.Itoa(quarter-models.RegulationPeriods)
	}
	return "Q" + strconv.Itoa(quarter)
}
