package view

import (
	"github.com/samvad-hq/news-intelligence/internal/domain"
)

// Phase is the render state derived from the view state tuple.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseLoaded  Phase = "loaded"
)

// NoPayloadMessage is shown when the backend answered 2xx without a usable body.
const NoPayloadMessage = "Failed to fetch news from backend"

// State is the (loading, error, response) tuple that fully determines the page.
type State struct {
	Loading  bool                    `json:"loading"`
	Error    string                  `json:"error,omitempty"`
	Response *domain.ArticleResponse `json:"response,omitempty"`
}

// Resolve returns the render phase with precedence: loading, then error, then loaded.
// A stale response never shows while a reload is running or an error is set.
func (s State) Resolve() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != "":
		return PhaseError
	case s.Response != nil:
		return PhaseLoaded
	default:
		return PhaseIdle
	}
}

// Snapshot is an immutable copy of the state plus its derived phase.
type Snapshot struct {
	State
	Phase Phase `json:"phase"`
	// Generation counts completed fetches.
	Generation uint64 `json:"generation"`
}

func (s State) clone() State {
	out := s
	if s.Response != nil {
		resp := *s.Response
		out.Response = &resp
	}
	return out
}
