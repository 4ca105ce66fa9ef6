// Package orchestrator runs one inbound optimiser request end to end:
// rate limit, validation, prompt composition, model call and JSON extraction.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"prompt-optimiser-be/internal/pkg/logger"
	"prompt-optimiser-be/pkg/apperr"
	"prompt-optimiser-be/pkg/events"
	"prompt-optimiser-be/pkg/identity"
	"prompt-optimiser-be/pkg/llm"
	"prompt-optimiser-be/pkg/optimiser"
	"prompt-optimiser-be/pkg/optimiser/extract"
	"prompt-optimiser-be/pkg/optimiser/prompt"
	"prompt-optimiser-be/pkg/vendor"

	"golang.org/x/time/rate"
)

const (
	MaxInputChars   = 50000
	DefaultTimeout  = 90 * time.Second
	defaultMaxToken = 4096

	logModule = "ORCHESTRATOR"
)

// Limiter is the per-identity admission check, satisfied by *ratelimit.SlidingWindow.
type Limiter interface {
	Allow(identity string) bool
}

// EventPublisher receives audit events. *nats.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Request struct {
	Mode              optimiser.Mode
	Vendor            string
	Model             string
	InputText         string
	AdditionalContext string
	EntryMode         optimiser.EntryMode
	ProblemContext    string
}

type Orchestrator struct {
	provider  llm.LLMProvider
	limiter   Limiter
	throttle  *rate.Limiter
	publisher EventPublisher
	logger    logger.ILogger
	timeout   time.Duration
}

type Option func(*Orchestrator)

// WithThrottle caps the process-wide call rate to the model provider.
func WithThrottle(l *rate.Limiter) Option {
	return func(o *Orchestrator) { o.throttle = l }
}

func WithPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func New(provider llm.LLMProvider, limiter Limiter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		limiter:  limiter,
		logger:   logger.NewNopLogger(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle resolves the caller identity from request headers and runs the request.
func (o *Orchestrator) Handle(ctx context.Context, headers identity.HeaderFunc, req Request) (map[string]any, error) {
	return o.HandleFor(ctx, identity.Resolve(headers), req)
}

// HandleFor runs the request for an already resolved identity.
// The model call is never retried here; callers own retry policy.
func (o *Orchestrator) HandleFor(ctx context.Context, id string, req Request) (map[string]any, error) {
	if o.limiter != nil && !o.limiter.Allow(id) {
		o.logger.Warn(logModule, "Rate limit exceeded", map[string]interface{}{"identity": identity.Redact(id), "mode": req.Mode})
		o.publish(ctx, events.TypeOptimiserThrottled, id, req, nil, 0)
		return nil, apperr.RateLimited("per-client limit exceeded")
	}

	v, err := validate(&req)
	if err != nil {
		return nil, err
	}

	if o.provider == nil {
		return nil, apperr.Misconfigured("no model provider configured")
	}

	system, user := prompt.Build(prompt.Input{
		Mode:              req.Mode,
		Vendor:            v,
		Model:             req.Model,
		InputText:         req.InputText,
		EntryMode:         req.EntryMode,
		ProblemContext:    req.ProblemContext,
		AdditionalContext: req.AdditionalContext,
	})

	if o.throttle != nil {
		if err := o.throttle.Wait(ctx); err != nil {
			o.logger.Warn(logModule, "Upstream throttle wait aborted", map[string]interface{}{"identity": identity.Redact(id), "mode": req.Mode})
			return nil, apperr.RateLimited("upstream capacity exhausted")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := llm.Complete(callCtx, o.provider, system, user, llm.WithMaxTokens(defaultMaxToken), llm.WithJSONResponse())
	elapsed := time.Since(start)
	if err != nil {
		mapped := mapUpstreamError(callCtx, err)
		o.logger.Error(logModule, "Model call failed", map[string]interface{}{
			"identity":    identity.Redact(id),
			"mode":        req.Mode,
			"vendor":      req.Vendor,
			"kind":        apperr.KindOf(mapped),
			"status":      statusOf(err),
			"duration_ms": elapsed.Milliseconds(),
		})
		o.publish(ctx, events.TypeOptimiserFailed, id, req, mapped, elapsed)
		return nil, mapped
	}

	obj, err := extract.Extract(raw)
	if err != nil {
		o.logger.Warn(logModule, "Model response could not be parsed", map[string]interface{}{
			"identity":     identity.Redact(id),
			"mode":         req.Mode,
			"vendor":       req.Vendor,
			"reason":       err.Error(),
			"response_len": len(raw),
		})
		o.publish(ctx, events.TypeOptimiserFailed, id, req, err, elapsed)
		return nil, err
	}

	o.logger.Info(logModule, "Request completed", map[string]interface{}{
		"identity":    identity.Redact(id),
		"mode":        req.Mode,
		"vendor":      req.Vendor,
		"model":       req.Model,
		"duration_ms": elapsed.Milliseconds(),
	})
	o.publish(ctx, events.TypeOptimiserCompleted, id, req, nil, elapsed)
	return obj, nil
}

// validate checks the request and fills defaults. It returns the resolved vendor.
func validate(req *Request) (vendor.Vendor, error) {
	if req.Mode == "" {
		return vendor.Vendor{}, apperr.Validation("mode is required")
	}
	if !req.Mode.Valid() {
		return vendor.Vendor{}, apperr.Validationf("unsupported mode %q", req.Mode)
	}
	if req.Vendor == "" {
		return vendor.Vendor{}, apperr.Validation("vendor is required")
	}
	v, ok := vendor.Lookup(req.Vendor)
	if !ok {
		return vendor.Vendor{}, apperr.Validationf("unknown vendor %q", req.Vendor)
	}
	if strings.TrimSpace(req.Model) == "" {
		return vendor.Vendor{}, apperr.Validation("model is required")
	}
	if strings.TrimSpace(req.InputText) == "" {
		return vendor.Vendor{}, apperr.Validation("inputText is required")
	}
	if utf8.RuneCountInString(req.InputText) > MaxInputChars {
		return vendor.Vendor{}, apperr.Validationf("inputText exceeds %d characters", MaxInputChars)
	}
	if utf8.RuneCountInString(req.AdditionalContext) > MaxInputChars {
		return vendor.Vendor{}, apperr.Validationf("additionalContext exceeds %d characters", MaxInputChars)
	}

	if req.Mode == optimiser.ModeCritique {
		if req.EntryMode == optimiser.EntryModeUnset {
			req.EntryMode = optimiser.EntryModeIdea
		}
		if !req.EntryMode.Valid() {
			return vendor.Vendor{}, apperr.Validationf("unsupported entryMode %q", req.EntryMode)
		}
	}

	return v, nil
}

func mapUpstreamError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.UpstreamFailure("timeout", 0, err)
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Category() == llm.CategoryUnauthorized {
			return apperr.UpstreamAuth(statusErr.StatusCode, err)
		}
		return apperr.UpstreamFailure(fmt.Sprintf("upstream status %d", statusErr.StatusCode), statusErr.StatusCode, err)
	}

	return apperr.UpstreamFailure("transport error", 0, err)
}

func statusOf(err error) int {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func (o *Orchestrator) publish(ctx context.Context, eventType, id string, req Request, cause error, elapsed time.Duration) {
	if o.publisher == nil {
		return
	}

	data := map[string]interface{}{
		"identity":    identity.Redact(id),
		"mode":        string(req.Mode),
		"vendor":      req.Vendor,
		"model":       req.Model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if cause != nil {
		data["kind"] = string(apperr.KindOf(cause))
	}

	if err := o.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		o.logger.Warn(logModule, "Failed to publish audit event", map[string]interface{}{"type": eventType, "error": err.Error()})
	}
}
