package tmdb

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("tmdb: resource not found")
	ErrInvalidID = errors.New("tmdb: invalid movie id")
)

// APIError is a non-2xx, non-404 TMDB response.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tmdb api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tmdb api error: status %d", e.StatusCode)
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
