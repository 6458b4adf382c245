package prismic

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no document matches a UID.
var ErrNotFound = errors.New("document not found")

// FetchError reports a failed request to the content API: a transport
// failure, a non-2xx status, or a response that could not be decoded.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("prismic %s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("prismic %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
