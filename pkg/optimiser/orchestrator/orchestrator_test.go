package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"prompt-optimiser-be/pkg/apperr"
	"prompt-optimiser-be/pkg/events"
	"prompt-optimiser-be/pkg/identity"
	"prompt-optimiser-be/pkg/llm"
	"prompt-optimiser-be/pkg/optimiser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	block    bool
	lastSys  string
	lastUser string
	lastOpts llm.Options
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastOpts = llm.Options{}
	for _, opt := range opts {
		opt(&f.lastOpts)
	}
	f.lastSys = history[0].Content
	f.lastUser = history[len(history)-1].Content
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func (f *fakeProvider) Generate(ctx context.Context, p string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: p}}, opts...)
}

type fakeLimiter struct {
	allow bool
	seen  []string
}

func (f *fakeLimiter) Allow(id string) bool {
	f.seen = append(f.seen, id)
	return f.allow
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func validRequest() Request {
	return Request{
		Mode:      optimiser.ModeCritique,
		Vendor:    "claude",
		Model:     "Sonnet",
		InputText: "Write an email about a delay",
	}
}

func headers(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestHandleSuccess(t *testing.T) {
	provider := &fakeProvider{response: "Sure!\n```json\n{\"questions\":[{\"id\":\"q1\",\"question\":\"Who?\"},],}\n```"}
	limiter := &fakeLimiter{allow: true}
	pub := &recordingPublisher{}
	o := New(provider, limiter, WithPublisher(pub))

	obj, err := o.Handle(context.Background(), headers(map[string]string{"X-Forwarded-For": "10.0.0.1"}), validRequest())

	require.NoError(t, err)
	assert.Contains(t, obj, "questions")
	assert.Equal(t, []string{"10.0.0.1"}, limiter.seen)
	assert.Contains(t, provider.lastUser, "<idea>")
	assert.True(t, provider.lastOpts.JSON)
	assert.Equal(t, 4096, provider.lastOpts.MaxTokens)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeOptimiserCompleted, pub.events[0].EventType())
}

func TestHandleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		reason string
	}{
		{"missing mode", func(r *Request) { r.Mode = "" }, "mode is required"},
		{"bad mode", func(r *Request) { r.Mode = "summarise" }, `unsupported mode "summarise"`},
		{"missing vendor", func(r *Request) { r.Vendor = "" }, "vendor is required"},
		{"unknown vendor", func(r *Request) { r.Vendor = "llama" }, `unknown vendor "llama"`},
		{"missing model", func(r *Request) { r.Model = " " }, "model is required"},
		{"missing input", func(r *Request) { r.InputText = "" }, "inputText is required"},
		{"oversized input", func(r *Request) { r.InputText = strings.Repeat("a", MaxInputChars+1) }, "inputText exceeds 50000 characters"},
		{"bad entry mode", func(r *Request) { r.EntryMode = "draft" }, `unsupported entryMode "draft"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{response: "{}"}
			o := New(provider, &fakeLimiter{allow: true})
			req := validRequest()
			tt.mutate(&req)

			_, err := o.HandleFor(context.Background(), "id", req)

			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.reason, apperr.UserMessage(err))
			assert.Zero(t, provider.calls)
		})
	}
}

func TestHandleInputAtCeilingAccepted(t *testing.T) {
	o := New(&fakeProvider{response: "{}"}, &fakeLimiter{allow: true})
	req := validRequest()
	req.InputText = strings.Repeat("a", MaxInputChars)

	_, err := o.HandleFor(context.Background(), "id", req)
	assert.NoError(t, err)
}

func TestHandleRateLimitedBeforeValidation(t *testing.T) {
	provider := &fakeProvider{response: "{}"}
	o := New(provider, &fakeLimiter{allow: false})

	_, err := o.HandleFor(context.Background(), "id", Request{})

	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Zero(t, provider.calls)
}

func TestHandleUpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &llm.StatusError{Provider: "x", StatusCode: http.StatusUnauthorized}, apperr.ErrUpstreamAuth},
		{"forbidden", &llm.StatusError{Provider: "x", StatusCode: http.StatusForbidden}, apperr.ErrUpstreamAuth},
		{"saturated", &llm.StatusError{Provider: "x", StatusCode: http.StatusTooManyRequests}, apperr.ErrUpstreamFailure},
		{"server error", &llm.StatusError{Provider: "x", StatusCode: http.StatusBadGateway}, apperr.ErrUpstreamFailure},
		{"transport", errors.New("connection reset"), apperr.ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{err: tt.err}
			o := New(provider, &fakeLimiter{allow: true})

			_, err := o.HandleFor(context.Background(), "id", validRequest())

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, provider.calls, "no internal retries")
		})
	}
}

func TestHandleTimeout(t *testing.T) {
	o := New(&fakeProvider{block: true}, &fakeLimiter{allow: true}, WithTimeout(20*time.Millisecond))

	_, err := o.HandleFor(context.Background(), "id", validRequest())

	require.ErrorIs(t, err, apperr.ErrUpstreamFailure)
	assert.Equal(t, "upstream_failure: timeout", err.Error())
}

func TestHandleExtractionFailureHidesRawText(t *testing.T) {
	o := New(&fakeProvider{response: "I cannot help with secret-token-123"}, &fakeLimiter{allow: true})

	_, err := o.HandleFor(context.Background(), "id", validRequest())

	require.ErrorIs(t, err, apperr.ErrExtraction)
	assert.NotContains(t, err.Error(), "secret-token-123")
	assert.Equal(t, "Failed to parse response, please try again.", apperr.UserMessage(err))
}

func TestHandleMisconfigured(t *testing.T) {
	o := New(nil, &fakeLimiter{allow: true})

	_, err := o.HandleFor(context.Background(), "id", validRequest())
	assert.ErrorIs(t, err, apperr.ErrMisconfigured)
}

func TestHandleThrottleWaitFails(t *testing.T) {
	provider := &fakeProvider{response: "{}"}
	o := New(provider, &fakeLimiter{allow: true}, WithThrottle(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := o.HandleFor(context.Background(), "id", validRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = o.HandleFor(ctx, "id", validRequest())

	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Equal(t, 1, provider.calls)
}

func TestHandleGenerateCarriesAdditionalContext(t *testing.T) {
	provider := &fakeProvider{response: `{"generatedPrompt":"p"}`}
	o := New(provider, &fakeLimiter{allow: true})
	req := validRequest()
	req.Mode = optimiser.ModeGenerate
	req.AdditionalContext = "Q: Tone?\nA: Formal"

	obj, err := o.HandleFor(context.Background(), "id", req)

	require.NoError(t, err)
	assert.Equal(t, "p", obj["generatedPrompt"])
	assert.Contains(t, provider.lastUser, "Q: Tone?\nA: Formal")
	assert.Contains(t, provider.lastSys, "generatedPrompt")
}

type recordingLogger struct {
	mu      sync.Mutex
	details []map[string]interface{}
}

func (l *recordingLogger) record(details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.details = append(l.details, details)
}

func (l *recordingLogger) Debug(_, _ string, d map[string]interface{}) { l.record(d) }
func (l *recordingLogger) Info(_, _ string, d map[string]interface{})  { l.record(d) }
func (l *recordingLogger) Warn(_, _ string, d map[string]interface{})  { l.record(d) }
func (l *recordingLogger) Error(_, _ string, d map[string]interface{}) { l.record(d) }
func (l *recordingLogger) Sync() error                                 { return nil }

func TestLogsAndEventsCarryRedactedIdentity(t *testing.T) {
	const clientIP = "203.0.113.7"
	tests := []struct {
		name     string
		provider *fakeProvider
		allow    bool
	}{
		{"completed", &fakeProvider{response: `{"questions":[]}`}, true},
		{"throttled", &fakeProvider{response: "{}"}, false},
		{"upstream failure", &fakeProvider{err: &llm.StatusError{Provider: "x", StatusCode: http.StatusBadGateway}}, true},
		{"unparsable output", &fakeProvider{response: "no object"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			pub := &recordingPublisher{}
			o := New(tt.provider, &fakeLimiter{allow: tt.allow}, WithLogger(log), WithPublisher(pub))

			_, _ = o.Handle(context.Background(), headers(map[string]string{"X-Real-IP": clientIP}), validRequest())

			require.NotEmpty(t, log.details)
			require.Len(t, pub.events, 1)

			records := append([]map[string]interface{}{}, log.details...)
			records = append(records, pub.events[0].Payload())
			for _, details := range records {
				for key, value := range details {
					assert.NotContains(t, fmt.Sprint(value), clientIP, "field %s", key)
				}
				if id, ok := details["identity"]; ok {
					assert.Equal(t, identity.Redact(clientIP), id)
				}
			}
		})
	}
}
