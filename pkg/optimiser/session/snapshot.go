package session

import (
	"prompt-optimiser-be/pkg/apperr"
	"prompt-optimiser-be/pkg/optimiser"
)

// Snapshot is a value copy of the session, safe to serialise and share.
type Snapshot struct {
	ID             string              `json:"id"`
	Revision       uint64              `json:"revision"`
	EntryMode      optimiser.EntryMode `json:"entryMode"`
	Phase          Phase               `json:"phase"`
	InputText      string              `json:"inputText"`
	ProblemContext string              `json:"problemContext"`
	Critique       *optimiser.Critique `json:"critique"`
	Answers        map[string]string   `json:"answers"`
	Result         *optimiser.Result   `json:"result"`
	SelectedVendor string              `json:"selectedVendor"`
	SelectedModel  string              `json:"selectedModel"`
	RetryCount     int                 `json:"retryCount"`
	CanRetry       bool                `json:"canRetry"`
	IsLoading      bool                `json:"isLoading"`
	IsRegenerating bool                `json:"isRegenerating"`
	Error          string              `json:"error,omitempty"`
	ErrorType      apperr.Kind         `json:"errorType,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	snap := Snapshot{
		ID:             s.id,
		Revision:       s.revision,
		EntryMode:      s.entryMode,
		Phase:          s.phase,
		InputText:      s.inputText,
		ProblemContext: s.problemContext,
		Critique:       copyCritique(s.critique),
		Answers:        answers,
		Result:         copyResult(s.result),
		SelectedVendor: s.selectedVendor,
		SelectedModel:  s.selectedModel,
		RetryCount:     s.retryCount,
		CanRetry:       s.canRetryLocked(),
		IsLoading:      s.loading,
		IsRegenerating: s.regenerating,
	}
	if s.lastErr != nil {
		snap.Error = apperr.UserMessage(s.lastErr)
		snap.ErrorType = apperr.KindOf(s.lastErr)
	}
	return snap
}

func copyCritique(c *optimiser.Critique) *optimiser.Critique {
	if c == nil {
		return nil
	}
	out := *c
	out.Concerns = append([]string(nil), c.Concerns...)
	out.Questions = append([]optimiser.Question(nil), c.Questions...)
	return &out
}

func copyResult(r *optimiser.Result) *optimiser.Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Assumptions = append([]string(nil), r.Assumptions...)
	out.Structure = append([]string(nil), r.Structure...)
	out.Suggestions = append([]string(nil), r.Suggestions...)
	return &out
}
