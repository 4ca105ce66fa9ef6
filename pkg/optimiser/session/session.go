// Package session implements the three-phase optimisation workflow:
// input, critique, result. One Session serves one browser tab.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prompt-optimiser-be/pkg/apperr"
	"prompt-optimiser-be/pkg/optimiser"
	"prompt-optimiser-be/pkg/vendor"
)

type Phase string

const (
	PhaseInput    Phase = "input"
	PhaseCritique Phase = "critique"
	PhaseResult   Phase = "result"
)

const (
	MinInputChars   = 5
	MaxRetryOffered = 3

	DefaultDebounce = 300 * time.Millisecond
)

type CritiqueRequest struct {
	Vendor         string
	Model          string
	InputText      string
	EntryMode      optimiser.EntryMode
	ProblemContext string
}

type GenerateRequest struct {
	Vendor            string
	Model             string
	InputText         string
	AdditionalContext string
	ProblemContext    string
}

// Backend is the remote side of the workflow. Results are raw JSON objects.
type Backend interface {
	Critique(ctx context.Context, req CritiqueRequest) (map[string]any, error)
	Generate(ctx context.Context, req GenerateRequest) (map[string]any, error)
}

// Observer is called after every state change, outside the session lock.
type Observer func(Snapshot)

type opKind string

const (
	opCritique   opKind = "critique"
	opGenerate   opKind = "generate"
	opRegenerate opKind = "regenerate"
	opImplement  opKind = "implement_suggestions"
)

type lastOp struct {
	kind   opKind
	vendor string
	model  string
}

type Session struct {
	id       string
	backend  Backend
	observer Observer
	debounce *Debouncer

	mu             sync.Mutex
	entryMode      optimiser.EntryMode
	phase          Phase
	inputText      string
	problemContext string
	critique       *optimiser.Critique
	answers        map[string]string
	result         *optimiser.Result
	selectedVendor string
	selectedModel  string
	retryCount     int
	lastErr        error
	lastOp         *lastOp
	loading        bool
	regenerating   bool

	// epoch changes on reset, invalidation and close; completions from an older epoch are dropped
	epoch    uint64
	revision uint64
	closed   bool
}

type Option func(*Session)

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = NewDebouncer(d)
		}
	}
}

func New(id string, backend Backend, opts ...Option) *Session {
	s := &Session{
		id:       id,
		backend:  backend,
		debounce: NewDebouncer(DefaultDebounce),
	}
	s.clear()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// clear sets every workflow field to its initial value. Caller holds mu (or owns s exclusively).
func (s *Session) clear() {
	s.entryMode = optimiser.EntryModeUnset
	s.phase = PhaseInput
	s.inputText = ""
	s.problemContext = ""
	s.critique = nil
	s.answers = make(map[string]string)
	s.result = nil
	s.selectedVendor = vendor.DefaultID
	s.selectedModel = vendor.DefaultModel(vendor.DefaultID)
	s.retryCount = 0
	s.lastErr = nil
	s.lastOp = nil
	s.loading = false
	s.regenerating = false
}

// mutate runs fn under the lock and notifies the observer if fn reports a change.
func (s *Session) mutate(fn func() (changed bool, err error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperr.InvalidTransition("session is closed")
	}
	changed, err := fn()
	var snap Snapshot
	if changed {
		s.revision++
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if changed && s.observer != nil {
		s.observer(snap)
	}
	return err
}

func (s *Session) busyLocked() bool {
	return s.loading || s.regenerating
}

// SubmitCritique sends the input for critique. Valid only in the input phase.
// An empty entryMode keeps the current one, defaulting to idea.
func (s *Session) SubmitCritique(ctx context.Context, inputText string, entryMode optimiser.EntryMode, problemContext string) error {
	var (
		req   CritiqueRequest
		epoch uint64
	)
	err := s.mutate(func() (bool, error) {
		if s.phase != PhaseInput {
			return false, apperr.InvalidTransition("critique can only be submitted from the input phase")
		}
		if s.busyLocked() {
			return false, apperr.Busy("a request is already in flight")
		}
		if len([]rune(strings.TrimSpace(inputText))) < MinInputChars {
			return false, apperr.Validationf("input must be at least %d characters", MinInputChars)
		}

		mode, err := s.resolveEntryModeLocked(entryMode)
		if err != nil {
			return false, err
		}

		s.entryMode = mode
		s.inputText = inputText
		s.problemContext = problemContext
		s.loading = true
		s.lastOp = &lastOp{kind: opCritique}
		epoch = s.epoch

		req = CritiqueRequest{
			Vendor:         s.selectedVendor,
			Model:          s.selectedModel,
			InputText:      inputText,
			EntryMode:      mode,
			ProblemContext: s.problemContextLocked(),
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	obj, callErr := s.backend.Critique(ctx, req)
	var critique *optimiser.Critique
	if callErr == nil {
		critique, callErr = optimiser.ParseCritique(obj)
	}

	return s.complete(epoch, callErr, func() {
		s.critique = critique
		s.answers = make(map[string]string)
		s.phase = PhaseCritique
	})
}

// AnswerQuestion records a free-text answer. Ids not in the current critique are ignored.
func (s *Session) AnswerQuestion(questionID, text string) error {
	return s.mutate(func() (bool, error) {
		if s.phase != PhaseCritique {
			return false, apperr.InvalidTransition("questions can only be answered in the critique phase")
		}
		if !s.critique.HasQuestion(questionID) {
			return false, nil
		}
		s.answers[questionID] = text
		return true, nil
	})
}

// SubmitGenerate produces the first result from the input and the answered questions.
func (s *Session) SubmitGenerate(ctx context.Context) error {
	var (
		req   GenerateRequest
		epoch uint64
	)
	err := s.mutate(func() (bool, error) {
		if s.phase != PhaseCritique {
			return false, apperr.InvalidTransition("generate can only be submitted from the critique phase")
		}
		if s.busyLocked() {
			return false, apperr.Busy("a request is already in flight")
		}

		s.loading = true
		s.lastOp = &lastOp{kind: opGenerate}
		epoch = s.epoch
		req = s.generateRequestLocked(s.selectedVendor, s.selectedModel, "")
		return true, nil
	})
	if err != nil {
		return err
	}

	obj, callErr := s.backend.Generate(ctx, req)

	return s.complete(epoch, callErr, func() {
		s.result = optimiser.ParseResult(obj)
		s.phase = PhaseResult
	})
}

// SwitchModel changes the target vendor/model. In the input phase it is a local
// change; in the result phase it regenerates and commits the selection on success.
// An empty model selects the vendor's default.
func (s *Session) SwitchModel(ctx context.Context, vendorID, model string) error {
	if !vendor.IsKnown(vendorID) {
		return apperr.Validationf("unknown vendor %q", vendorID)
	}
	if model == "" {
		model = vendor.DefaultModel(vendorID)
	}
	if !vendor.HasModel(vendorID, model) {
		return apperr.Validationf("unknown model %q for vendor %q", model, vendorID)
	}

	var (
		req        GenerateRequest
		epoch      uint64
		regenerate bool
	)
	err := s.mutate(func() (bool, error) {
		switch s.phase {
		case PhaseInput:
			s.selectedVendor = vendorID
			s.selectedModel = model
			return true, nil
		case PhaseResult:
			if s.busyLocked() {
				return false, apperr.Busy("a regeneration is already in flight")
			}
			s.regenerating = true
			s.lastOp = &lastOp{kind: opRegenerate, vendor: vendorID, model: model}
			epoch = s.epoch
			regenerate = true
			req = s.generateRequestLocked(vendorID, model, "")
			return true, nil
		default:
			return false, apperr.InvalidTransition("model cannot be switched in the critique phase")
		}
	})
	if err != nil || !regenerate {
		return err
	}

	obj, callErr := s.backend.Generate(ctx, req)

	return s.complete(epoch, callErr, func() {
		s.result = optimiser.ParseResult(obj)
		s.selectedVendor = vendorID
		s.selectedModel = model
	})
}

// ImplementSuggestions regenerates with the current result's suggestions folded into the context.
func (s *Session) ImplementSuggestions(ctx context.Context) error {
	var (
		req   GenerateRequest
		epoch uint64
	)
	err := s.mutate(func() (bool, error) {
		if s.phase != PhaseResult {
			return false, apperr.InvalidTransition("suggestions can only be implemented in the result phase")
		}
		if len(s.result.Suggestions) == 0 {
			return false, apperr.InvalidTransition("the current result has no suggestions")
		}
		if s.busyLocked() {
			return false, apperr.Busy("a regeneration is already in flight")
		}

		s.regenerating = true
		s.lastOp = &lastOp{kind: opImplement}
		epoch = s.epoch
		req = s.generateRequestLocked(s.selectedVendor, s.selectedModel, suggestionBlock(s.result.Suggestions))
		return true, nil
	})
	if err != nil {
		return err
	}

	obj, callErr := s.backend.Generate(ctx, req)

	return s.complete(epoch, callErr, func() {
		s.result = optimiser.ParseResult(obj)
	})
}

// EditInput updates the text at once. Outside the input phase it also schedules a
// debounced fall back to input, restarting the quiet period on every edit.
// Changing the text while a critique is in flight discards that critique.
func (s *Session) EditInput(text string) error {
	return s.mutate(func() (bool, error) {
		if s.phase == PhaseInput && s.loading && text != s.inputText {
			s.epoch++
			s.loading = false
			s.lastOp = nil
		}
		s.inputText = text
		if s.phase != PhaseInput {
			epoch := s.epoch
			s.debounce.Schedule(func(gen uint64) { s.invalidate(epoch, gen) })
		}
		return true, nil
	})
}

// invalidate drops critique, answers and result. A reset since scheduling, or a
// newer edit that restarted the quiet period, makes it a no-op.
func (s *Session) invalidate(scheduledAt, gen uint64) {
	_ = s.mutate(func() (bool, error) {
		if s.epoch != scheduledAt || s.phase == PhaseInput || !s.debounce.Current(gen) {
			return false, nil
		}
		s.epoch++
		s.phase = PhaseInput
		s.critique = nil
		s.answers = make(map[string]string)
		s.result = nil
		s.retryCount = 0
		s.lastErr = nil
		s.lastOp = nil
		s.loading = false
		s.regenerating = false
		return true, nil
	})
}

// Reset returns to a fresh session. In-flight completions are discarded.
func (s *Session) Reset() error {
	return s.mutate(func() (bool, error) {
		s.debounce.Cancel()
		s.epoch++
		s.clear()
		return true, nil
	})
}

// SetEntryMode fixes the entry mode for the session; it cannot change until reset.
func (s *Session) SetEntryMode(mode optimiser.EntryMode) error {
	return s.mutate(func() (bool, error) {
		if s.phase != PhaseInput {
			return false, apperr.InvalidTransition("entry mode can only be set in the input phase")
		}
		if !mode.Valid() {
			return false, apperr.Validationf("unsupported entryMode %q", mode)
		}
		resolved, err := s.resolveEntryModeLocked(mode)
		if err != nil {
			return false, err
		}
		s.entryMode = resolved
		return true, nil
	})
}

func (s *Session) SetProblemContext(text string) error {
	return s.mutate(func() (bool, error) {
		if s.phase != PhaseInput {
			return false, apperr.InvalidTransition("problem context can only be set in the input phase")
		}
		s.problemContext = text
		return true, nil
	})
}

// CanRetry reports whether the retry affordance is offered.
func (s *Session) CanRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canRetryLocked()
}

func (s *Session) canRetryLocked() bool {
	return s.lastErr != nil && s.lastOp != nil && s.retryCount >= 1 && s.retryCount < MaxRetryOffered
}

// Retry re-dispatches the last failed operation while the affordance is offered.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if !s.canRetryLocked() {
		s.mu.Unlock()
		return apperr.InvalidTransition("there is nothing to retry")
	}
	op := *s.lastOp
	inputText, entryMode, problemContext := s.inputText, s.entryMode, s.problemContext
	s.mu.Unlock()

	switch op.kind {
	case opCritique:
		return s.SubmitCritique(ctx, inputText, entryMode, problemContext)
	case opGenerate:
		return s.SubmitGenerate(ctx)
	case opRegenerate:
		return s.SwitchModel(ctx, op.vendor, op.model)
	case opImplement:
		return s.ImplementSuggestions(ctx)
	default:
		return apperr.InvalidTransition("there is nothing to retry")
	}
}

// Close disposes the session: the pending debounce is cancelled and later completions are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.debounce.Cancel()
}

// complete applies the outcome of a remote call started at epoch.
func (s *Session) complete(epoch uint64, callErr error, onSuccess func()) error {
	stale := false
	err := s.mutate(func() (bool, error) {
		if s.epoch != epoch {
			stale = true
			return false, nil
		}

		s.loading = false
		s.regenerating = false
		if callErr != nil {
			s.retryCount++
			s.lastErr = callErr
			return true, callErr
		}

		onSuccess()
		s.retryCount = 0
		s.lastErr = nil
		s.lastOp = nil
		return true, nil
	})
	if err != nil {
		return err
	}
	if stale {
		return apperr.InvalidTransition("session changed while the request was in flight")
	}
	return nil
}

func (s *Session) resolveEntryModeLocked(requested optimiser.EntryMode) (optimiser.EntryMode, error) {
	if requested == optimiser.EntryModeUnset {
		if s.entryMode == optimiser.EntryModeUnset {
			return optimiser.EntryModeIdea, nil
		}
		return s.entryMode, nil
	}
	if !requested.Valid() {
		return "", apperr.Validationf("unsupported entryMode %q", requested)
	}
	if s.entryMode != optimiser.EntryModeUnset && s.entryMode != requested {
		return "", apperr.InvalidTransition("entry mode is already set for this session")
	}
	return requested, nil
}

func (s *Session) problemContextLocked() string {
	if s.entryMode != optimiser.EntryModePrompt {
		return ""
	}
	return s.problemContext
}

func (s *Session) generateRequestLocked(vendorID, model, extra string) GenerateRequest {
	ctx := AdditionalContext(s.critique, s.answers)
	if extra != "" {
		if ctx != "" {
			ctx += "\n\n"
		}
		ctx += extra
	}
	return GenerateRequest{
		Vendor:            vendorID,
		Model:             model,
		InputText:         s.inputText,
		AdditionalContext: ctx,
		ProblemContext:    s.problemContextLocked(),
	}
}

// AdditionalContext serialises the answered questions in question order.
// Answers to ids outside the critique never appear.
func AdditionalContext(c *optimiser.Critique, answers map[string]string) string {
	if c == nil {
		return ""
	}
	var blocks []string
	for _, q := range c.Questions {
		answer := strings.TrimSpace(answers[q.ID])
		if answer == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", q.Question, answer))
	}
	return strings.Join(blocks, "\n\n")
}

func suggestionBlock(suggestions []string) string {
	var sb strings.Builder
	sb.WriteString("Please also implement the following suggestions:")
	for i, s := range suggestions {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, s)
	}
	return sb.String()
}
