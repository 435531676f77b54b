package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Session defaults applied when a snapshot omits a field.
const (
	DefaultQuarterMinutes = 10
	DefaultCourt          = "Court A"
	DefaultMatchType      = "Boys"
	DefaultRoundType      = "Knockout Round"
	DefaultTimeoutSeconds = 60
)

// DefaultTimeoutBudget is the per-team timeout budget for q1..q4.
var DefaultTimeoutBudget = []int{2, 2, 2, 4}

// NewMatchSession returns an empty session in the menu stage.
func NewMatchSession() *MatchSession {
	m := &MatchSession{
		Court:           DefaultCourt,
		MatchType:       DefaultMatchType,
		RoundType:       DefaultRoundType,
		Quarter:         1,
		QuarterDuration: DefaultQuarterMinutes,
		TimerSeconds:    DefaultQuarterMinutes * 60,
		TimeoutSeconds:  DefaultTimeoutSeconds,
		QuarterScores:   map[string]PeriodScore{},
		Timeouts:        NewTeamCounters(),
		TeamFouls:       NewTeamCounters(),
		Players:         map[string]SessionPlayer{},
		TeamAPlaying:    []string{},
		TeamBPlaying:    []string{},
		Disqualified:    []string{},
		Ledger:          map[string][]LedgerEvent{},
		MatchStage:      StageMenu,
	}
	for i := 1; i <= RegulationPeriods; i++ {
		m.QuarterScores[PeriodKey(i)] = PeriodScore{}
	}
	SeedTimeouts(&m.Timeouts, DefaultTimeoutBudget)
	return m
}

// SeedTimeouts sets the q1..qN budgets for both teams.
func SeedTimeouts(c *TeamCounters, budget []int) {
	for i, n := range budget {
		key := PeriodKey(i + 1)
		c.Set(TeamA, key, n)
		c.Set(TeamB, key, n)
	}
}

// Encode converts the session into the JSON-compatible tree form.
func (m *MatchSession) Encode() (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeSession builds a session from an arbitrary tree snapshot. Missing or
// wrong-typed fields fall back to the defaults of NewMatchSession, so the
// result is always safe to do arithmetic on. A nil snapshot yields nil.
func DecodeSession(v any) *MatchSession {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	m := NewMatchSession()
	m.MatchID = asString(raw["matchId"], "")
	m.ScheduleID = asString(raw["scheduleId"], "")
	m.Court = asString(raw["court"], m.Court)
	m.MatchType = asString(raw["matchType"], m.MatchType)
	m.RoundType = asString(raw["roundType"], m.RoundType)
	m.TeamA = asString(raw["teamA"], "")
	m.TeamB = asString(raw["teamB"], "")
	m.ScoreA = nonNegative(asInt(raw["scoreA"], 0))
	m.ScoreB = nonNegative(asInt(raw["scoreB"], 0))
	m.Quarter = asInt(raw["quarter"], 1)
	if m.Quarter < 1 {
		m.Quarter = 1
	}
	m.IsOvertime = asBool(raw["isOvertime"], m.Quarter > RegulationPeriods)
	m.QuarterDuration = asInt(raw["quarterDuration"], DefaultQuarterMinutes)
	if m.QuarterDuration <= 0 {
		m.QuarterDuration = DefaultQuarterMinutes
	}
	m.TimerSeconds = nonNegative(asInt(raw["timerSeconds"], m.QuarterDuration*60))
	m.IsRunning = asBool(raw["isRunning"], false)
	m.TimeoutActive = asBool(raw["timeoutActive"], false)
	m.TimeoutSeconds = nonNegative(asInt(raw["timeoutSeconds"], DefaultTimeoutSeconds))
	if t, ok := ParseTeam(asString(raw["timeoutTeam"], "")); ok {
		m.TimeoutTeam = t
	}
	m.LastUpdated = int64(asInt(raw["lastUpdated"], 0))

	if stage := Stage(asString(raw["matchStage"], "")); stage.Valid() {
		m.MatchStage = stage
	}
	if stage := Stage(asString(raw["previousStage"], "")); stage.Valid() {
		m.PreviousStage = stage
	}

	if qs, ok := raw["quarterScores"].(map[string]any); ok {
		for k, v := range qs {
			entry, _ := v.(map[string]any)
			m.QuarterScores[k] = PeriodScore{
				TeamA: asInt(entry["teamA"], 0),
				TeamB: asInt(entry["teamB"], 0),
			}
		}
	}
	decodeCounters(raw["timeouts"], &m.Timeouts)
	decodeCounters(raw["teamFouls"], &m.TeamFouls)
	if b, ok := raw["bonus"].(map[string]any); ok {
		m.Bonus = Bonus{TeamA: asBool(b["teamA"], false), TeamB: asBool(b["teamB"], false)}
	}

	if ps, ok := raw["players"].(map[string]any); ok {
		for id, v := range ps {
			p, _ := v.(map[string]any)
			team, ok := ParseTeam(asString(p["team"], ""))
			if !ok {
				team = TeamA
			}
			m.Players[id] = SessionPlayer{
				Name:   asString(p["name"], ""),
				Jersey: asString(p["jersey"], ""),
				Team:   team,
				Points: nonNegative(asInt(p["points"], 0)),
				Fouls:  nonNegative(asInt(p["fouls"], 0)),
			}
		}
	}
	m.TeamAPlaying = asStrings(raw["teamAPlaying"])
	m.TeamBPlaying = asStrings(raw["teamBPlaying"])
	m.Disqualified = asStrings(raw["disqualified"])

	if ledger, ok := raw["ledger"].(map[string]any); ok {
		for id, v := range ledger {
			events, _ := v.([]any)
			for _, e := range events {
				ev, _ := e.(map[string]any)
				m.Ledger[id] = append(m.Ledger[id], LedgerEvent{
					Kind:   LedgerKind(asString(ev["kind"], string(LedgerPoints))),
					Delta:  asInt(ev["delta"], 0),
					Period: asString(ev["period"], ""),
					At:     int64(asInt(ev["at"], 0)),
				})
			}
		}
	}

	if sub, ok := raw["pendingSubstitution"].(map[string]any); ok {
		if team, ok := ParseTeam(asString(sub["team"], "")); ok {
			m.PendingSubstitution = &Substitution{
				Team:        team,
				OutID:       asString(sub["outId"], ""),
				Forced:      asBool(sub["forced"], false),
				ResumeClock: asBool(sub["resumeClock"], false),
			}
		}
	}
	return m
}

func decodeCounters(v any, dst *TeamCounters) {
	raw, ok := v.(map[string]any)
	if !ok {
		return
	}
	for _, team := range []Team{TeamA, TeamB} {
		periods, _ := raw[team.Key()].(map[string]any)
		for k, n := range periods {
			dst.Set(team, k, nonNegative(asInt(n, 0)))
		}
	}
}

func asString(v any, def string) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return def
}

func asInt(v any, def int) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return def
		}
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

func asBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func asStrings(v any) []string {
	out := []string{}
	items, _ := v.([]any)
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func sortRoster(ids []string, players map[string]SessionPlayer) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := players[ids[i]], players[ids[j]]
		ai, aerr := strconv.Atoi(a.Jersey)
		bi, berr := strconv.Atoi(b.Jersey)
		if aerr == nil && berr == nil && ai != bi {
			return ai < bi
		}
		if a.Jersey != b.Jersey {
			return a.Jersey < b.Jersey
		}
		return ids[i] < ids[j]
	})
}
