package upstream

import (
	"errors"
	"fmt"
)

// Classification is the small vocabulary every upstream failure is reduced to.
type Classification int

const (
	// Unclassified covers everything that is not an explicit 404 or 400:
	// transport errors, timeouts, unexpected statuses and unusable bodies.
	Unclassified Classification = iota
	NotFound
	BadRequest
)

func (c Classification) String() string {
	switch c {
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	default:
		return "unclassified"
	}
}

// FetchError is the failure half of a fetch outcome.
type FetchError struct {
	Upstream   string
	Class      Classification
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s upstream: %s (status %d): %v", e.Upstream, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s upstream: %s: %v", e.Upstream, e.Class, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassOf returns the classification carried by err. Errors that did not
// come from a fetch are Unclassified.
func ClassOf(err error) Classification {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return Unclassified
}
