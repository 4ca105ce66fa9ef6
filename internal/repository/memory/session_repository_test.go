package memory

import (
	"context"
	"testing"
	"unsafe"

	"prompt-optimiser-be/pkg/apperr"
	"prompt-optimiser-be/pkg/optimiser/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noBackend struct{}

func (noBackend) Critique(context.Context, session.CritiqueRequest) (map[string]any, error) {
	return nil, apperr.UpstreamFailure("unused", 0, nil)
}

func (noBackend) Generate(context.Context, session.GenerateRequest) (map[string]any, error) {
	return nil, apperr.UpstreamFailure("unused", 0, nil)
}

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(0)
	s := session.New("abc", noBackend{})

	repo.Save(s)
	got, ok := repo.Get("abc")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, repo.Count())

	_, ok = repo.Get("missing")
	assert.False(t, ok)
}

func TestDeleteClosesSession(t *testing.T) {
	repo := NewSessionRepository(0)
	s := session.New("abc", noBackend{})
	repo.Save(s)

	repo.Delete("abc")

	_, ok := repo.Get("abc")
	assert.False(t, ok)
	assert.ErrorIs(t, s.EditInput("after delete"), apperr.ErrInvalidTransition)
}

func TestGetKeepsSessionReachableWhenLookupKeyIsReused(t *testing.T) {
	repo := NewSessionRepository(0)
	s := session.New("abc", noBackend{})
	repo.Save(s)

	// a lookup key backed by a buffer the caller reuses, as request path params are
	buf := []byte("abc")
	key := unsafe.String(&buf[0], len(buf))
	_, ok := repo.Get(key)
	require.True(t, ok)

	copy(buf, "xyz")

	got, ok := repo.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, repo.Count())
}
