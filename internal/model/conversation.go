package model

import (
	"time"
)

// Phase is the position of a session in the search flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingCategory
	PhaseAwaitingQuery
	PhaseShowingResults
	PhaseAwaitingShowMore
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingCategory:
		return "awaiting_category"
	case PhaseAwaitingQuery:
		return "awaiting_query"
	case PhaseShowingResults:
		return "showing_results"
	case PhaseAwaitingShowMore:
		return "awaiting_show_more"
	default:
		return "unknown"
	}
}

// Session is the per-identity conversation state.
type Session struct {
	Phase     Phase
	Category  Category
	Results   []Component
	Cursor    int
	LastQuery string
	UpdatedAt time.Time
}

// Remaining returns how many results have not been delivered yet.
func (s *Session) Remaining() int {
	if n := len(s.Results) - s.Cursor; n > 0 {
		return n
	}
	return 0
}

// Reset returns the session to the idle phase.
func (s *Session) Reset() {
	s.Phase = PhaseIdle
	s.Category = ""
	s.Results = nil
	s.Cursor = 0
	s.LastQuery = ""
}
