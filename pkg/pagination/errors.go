package pagination

import (
	"errors"
	"fmt"
)

// ErrMissingPosts is wrapped by DecodeError when the body is valid JSON but
// has no "posts" array.
var ErrMissingPosts = errors.New(`response has no "posts" field`)

// HTTPError is returned when a page request answers with a status other than 200.
type HTTPError struct {
	Page   int
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error (status %d) on page %d: %s", e.Status, e.Page, e.Body)
}

// DecodeError is returned when a 200 response cannot be decoded into a page.
type DecodeError struct {
	Page int
	Body string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
