// Package state holds per-conversation honeypot state and the stores that
// persist it between requests.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

var (
	// ErrNotFound is returned by Load for an unknown conversation.
	ErrNotFound = errors.New("state: conversation not found")
	// ErrStateConflict is returned by Save when the stored version moved on.
	ErrStateConflict = errors.New("state: concurrent update conflict")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("state: store unavailable")
)

// Mode is the engagement mode of a conversation.
type Mode string

const (
	ModeMonitoring Mode = "MONITORING"
	ModeCautious   Mode = "CAUTIOUS"
	ModeAggressive Mode = "AGGRESSIVE"
	ModeTerminated Mode = "TERMINATED"
)

// Engaged reports whether the honeypot is actively replying in this mode.
func (m Mode) Engaged() bool {
	return m == ModeCautious || m == ModeAggressive
}

// Rank orders modes for the no-downgrade rule.
func (m Mode) Rank() int {
	switch m {
	case ModeMonitoring:
		return 0
	case ModeCautious:
		return 1
	case ModeAggressive:
		return 2
	case ModeTerminated:
		return 3
	default:
		return -1
	}
}

// ExitReason says why a conversation was terminated.
type ExitReason string

const (
	ExitNone                 ExitReason = ""
	ExitMaxTurns             ExitReason = "MAX_TURNS"
	ExitMaxDuration          ExitReason = "MAX_DURATION"
	ExitScammerDisengaged    ExitReason = "SCAMMER_DISENGAGED"
	ExitPersonaEnded         ExitReason = "PERSONA_ENDED"
	ExitDisclosureRisk       ExitReason = "DISCLOSURE_RISK"
	ExitIntelligenceComplete ExitReason = "INTELLIGENCE_COMPLETE"
	ExitStale                ExitReason = "STALE"
)

// State is the persisted record of one conversation. Confidence never
// decreases and the record is frozen once Mode is TERMINATED.
type State struct {
	ID                string          `json:"id"`
	Mode              Mode            `json:"mode"`
	Confidence        float64         `json:"confidence"`
	Observed          bool            `json:"observed"`
	Category          models.Category `json:"category"`
	Tactics           []string        `json:"tactics,omitempty"`
	TurnCount         int             `json:"turnCount"`
	ElapsedSeconds    int64           `json:"elapsedSeconds"`
	EngagedAt         time.Time       `json:"engagedAt,omitempty"`
	MessagesSeen      int             `json:"messagesSeen"`
	RepliesSent       int             `json:"repliesSent"`
	TurnsSinceNewInfo int             `json:"turnsSinceNewInfo"`
	DegradedTurns     int             `json:"degradedTurns"`
	Intelligence      models.IntelSet `json:"intelligence"`
	ExitReason        ExitReason      `json:"exitReason,omitempty"`
	LastReply         string          `json:"lastReply,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// New returns the initial MONITORING state for id.
func New(id string, now time.Time) *State {
	return &State{
		ID:        id,
		Mode:      ModeMonitoring,
		Category:  models.CategoryNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminated reports whether the conversation is frozen.
func (s *State) Terminated() bool {
	return s != nil && s.Mode == ModeTerminated
}

// EverEngaged reports whether the conversation left MONITORING at some point.
func (s *State) EverEngaged() bool {
	return s != nil && !s.EngagedAt.IsZero()
}

// Clone returns a deep copy safe to mutate.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Tactics = append([]string(nil), s.Tactics...)
	out.Intelligence = s.Intelligence.Clone()
	return &out
}

// AddTactics records tactic names not seen before, preserving first-seen order.
func (s *State) AddTactics(tactics ...string) {
	seen := make(map[string]bool, len(s.Tactics))
	for _, t := range s.Tactics {
		seen[t] = true
	}
	for _, t := range tactics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		s.Tactics = append(s.Tactics, t)
	}
}

// Store persists conversation state. Save is version-checked: st.Version must
// equal the stored version (0 for a new conversation) and is incremented on
// success. A mismatch returns ErrStateConflict and writes nothing.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
}
