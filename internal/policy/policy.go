// Package policy is the engagement state machine: it folds pre-filter and
// classifier observations into a conversation's mode and decides when the
// engagement ends.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/classify"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/prefilter"
	"github.com/wolfman30/scam-honeypot/internal/state"
)

// ErrInvalidConfig is returned by New for inconsistent thresholds or budgets.
var ErrInvalidConfig = errors.New("policy: invalid config")

type Config struct {
	CautiousThreshold   float64
	AggressiveThreshold float64
	MaxTurnsCautious    int
	MaxTurnsAggressive  int
	MaxDuration         time.Duration
	// StaleTurns ends an engagement after this many engaged turns without new
	// intelligence. Zero disables the check.
	StaleTurns int
	// RequiredKinds ends an engagement once every listed kind was extracted.
	// Empty disables the check.
	RequiredKinds []models.IntelKind
}

func DefaultConfig() Config {
	return Config{
		CautiousThreshold:   0.60,
		AggressiveThreshold: 0.85,
		MaxTurnsCautious:    10,
		MaxTurnsAggressive:  25,
		MaxDuration:         600 * time.Second,
		StaleTurns:          5,
	}
}

func (c Config) Validate() error {
	switch {
	case c.CautiousThreshold <= 0 || c.CautiousThreshold > 1:
		return fmt.Errorf("%w: cautious threshold %v not in (0,1]", ErrInvalidConfig, c.CautiousThreshold)
	case c.AggressiveThreshold < c.CautiousThreshold || c.AggressiveThreshold > 1:
		return fmt.Errorf("%w: aggressive threshold %v must be in [%v,1]", ErrInvalidConfig, c.AggressiveThreshold, c.CautiousThreshold)
	case c.MaxTurnsCautious <= 0 || c.MaxTurnsAggressive <= 0:
		return fmt.Errorf("%w: turn budgets must be positive", ErrInvalidConfig)
	case c.MaxDuration <= 0:
		return fmt.Errorf("%w: max duration must be positive", ErrInvalidConfig)
	case c.StaleTurns < 0:
		return fmt.Errorf("%w: stale turns must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Observation is everything the engine needs to advance one turn.
type Observation struct {
	Verdict   prefilter.Verdict
	Category  models.Category
	Judgment  *classify.Judgment
	Degraded  bool
	Disengage bool
	Now       time.Time
}

// Decision is the engine's output for one turn.
type Decision struct {
	Mode       state.Mode
	Confidence float64
	Observed   float64
	ExitReason state.ExitReason
	// Engaged is true when this turn was processed in an engaged mode and a
	// persona reply may be produced.
	Engaged bool
	// Frozen is true when the conversation was already terminated and nothing changed.
	Frozen   bool
	Degraded bool
	Upgraded bool
}

// Terminal reports whether the conversation is terminated after this turn.
func (d Decision) Terminal() bool {
	return d.Mode == state.ModeTerminated
}

// Outcome is the post-extraction input to Settle.
type Outcome struct {
	NewItems       int
	PersonaEnded   bool
	DisclosureRisk bool
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// MaxTurns returns the turn budget for mode.
func (e *Engine) MaxTurns(mode state.Mode) int {
	if mode == state.ModeAggressive {
		return e.cfg.MaxTurnsAggressive
	}
	return e.cfg.MaxTurnsCautious
}

// target maps a confidence to the mode it earns on its own.
func (e *Engine) target(confidence float64) state.Mode {
	switch {
	case confidence >= e.cfg.AggressiveThreshold:
		return state.ModeAggressive
	case confidence >= e.cfg.CautiousThreshold:
		return state.ModeCautious
	default:
		return state.ModeMonitoring
	}
}

// Advance applies one incoming message to st. st must be a working copy; it
// is left untouched when already terminated.
func (e *Engine) Advance(st *state.State, obs Observation) Decision {
	if st.Terminated() {
		return Decision{
			Mode:       st.Mode,
			Confidence: st.Confidence,
			Observed:   st.Confidence,
			ExitReason: st.ExitReason,
			Frozen:     true,
		}
	}

	d := Decision{}
	st.MessagesSeen++
	if !obs.Now.IsZero() {
		st.UpdatedAt = obs.Now
	}

	switch {
	case obs.Verdict == prefilter.ObviousScam:
		d.Observed = 1.0
		st.Observed = true
	case obs.Verdict == prefilter.ObviousSafe:
		d.Observed = 0.0
		st.Observed = true
	case obs.Judgment != nil && !obs.Degraded:
		d.Observed = clamp01(obs.Judgment.RawConfidence)
		st.Observed = true
		st.AddTactics(obs.Judgment.Tactics...)
	default:
		d.Observed = st.Confidence
		d.Degraded = true
		st.DegradedTurns++
	}

	if d.Observed > st.Confidence {
		st.Confidence = d.Observed
	}
	e.updateCategory(st, obs)

	if want := e.target(st.Confidence); want.Rank() > st.Mode.Rank() {
		if st.EngagedAt.IsZero() {
			st.EngagedAt = obs.Now
		}
		st.Mode = want
		d.Upgraded = true
	}

	if st.Mode.Engaged() {
		d.Engaged = true
		st.TurnCount++
		if !st.EngagedAt.IsZero() && obs.Now.After(st.EngagedAt) {
			st.ElapsedSeconds = int64(obs.Now.Sub(st.EngagedAt) / time.Second)
		}
		switch {
		case st.TurnCount >= e.MaxTurns(st.Mode):
			terminate(st, state.ExitMaxTurns)
		case time.Duration(st.ElapsedSeconds)*time.Second >= e.cfg.MaxDuration:
			terminate(st, state.ExitMaxDuration)
		case obs.Disengage:
			terminate(st, state.ExitScammerDisengaged)
		}
	}

	d.Mode = st.Mode
	d.Confidence = st.Confidence
	d.ExitReason = st.ExitReason
	return d
}

// Settle applies the post-extraction signals of an engaged turn. It is a
// no-op unless d was an engaged, non-terminal decision.
func (e *Engine) Settle(st *state.State, d Decision, out Outcome) Decision {
	if !d.Engaged || d.Frozen || st.Terminated() {
		return d
	}

	if out.NewItems > 0 {
		st.TurnsSinceNewInfo = 0
	} else {
		st.TurnsSinceNewInfo++
	}

	switch {
	case out.DisclosureRisk:
		terminate(st, state.ExitDisclosureRisk)
	case e.intelligenceComplete(st):
		terminate(st, state.ExitIntelligenceComplete)
	case out.PersonaEnded:
		terminate(st, state.ExitPersonaEnded)
	case e.cfg.StaleTurns > 0 && st.TurnsSinceNewInfo >= e.cfg.StaleTurns:
		terminate(st, state.ExitStale)
	}

	d.Mode = st.Mode
	d.ExitReason = st.ExitReason
	return d
}

func (e *Engine) intelligenceComplete(st *state.State) bool {
	if len(e.cfg.RequiredKinds) == 0 {
		return false
	}
	have := st.Intelligence.Kinds()
	for _, k := range e.cfg.RequiredKinds {
		if !have[k] {
			return false
		}
	}
	return true
}

// updateCategory keeps the first specific category seen. "other" may be
// refined later; a specific category is never replaced.
func (e *Engine) updateCategory(st *state.State, obs Observation) {
	candidate := obs.Category
	if obs.Judgment != nil && !obs.Degraded && obs.Judgment.Category != "" && obs.Judgment.Category != models.CategoryNone {
		if candidate == "" || candidate == models.CategoryNone || candidate == models.CategoryOther {
			candidate = obs.Judgment.Category
		}
	}
	if candidate == "" || candidate == models.CategoryNone {
		return
	}
	if st.Category == "" || st.Category == models.CategoryNone || st.Category == models.CategoryOther {
		st.Category = candidate
	}
}

func terminate(st *state.State, reason state.ExitReason) {
	st.Mode = state.ModeTerminated
	st.ExitReason = reason
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
