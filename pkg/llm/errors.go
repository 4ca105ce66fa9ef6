package llm

import (
	"fmt"
	"net/http"
)

// Category is the coarse class of an upstream HTTP failure.
type Category string

const (
	CategoryUnauthorized Category = "unauthorized"
	CategoryRateLimited  Category = "rate_limited"
	CategoryOther        Category = "other"
)

// StatusError is returned when a provider answers with a non-2xx status.
// The response body is deliberately not kept.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error: status %d", e.Provider, e.StatusCode)
}

func (e *StatusError) Category() Category {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CategoryUnauthorized
	case http.StatusTooManyRequests:
		return CategoryRateLimited
	default:
		return CategoryOther
	}
}
