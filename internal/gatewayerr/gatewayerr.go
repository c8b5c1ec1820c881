// Package gatewayerr holds the gateway's error vocabulary.
//
// Upstream fetch failures are mapped into one of three kinds, and
// HandleError turns a kind into the client-facing errs.HTTPError.
package gatewayerr

import (
	"errors"
	"fmt"

	"github.com/deppfellow/bicycle-gateway/internal/upstream"
)

// Kind is the client-facing category of a gateway failure.
type Kind int

const (
	// Upstream is the catch-all: any failure that is not a recognized
	// not-found or bad-request signal.
	Upstream Kind = iota
	NotFound
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	default:
		return "upstream"
	}
}

// Error is a gateway failure. Err keeps the underlying cause for logs;
// it is never shown to clients.
type Error struct {
	Kind     Kind
	Upstream string // empty when no upstream was involved
	Err      error
}

func (e *Error) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("%s via %s: %v", e.Kind, e.Upstream, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error that did not come from an upstream.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// FromFetch maps a fetch failure onto a gateway kind. The classification is
// carried over as-is; anything without one becomes Upstream. The result is
// a *Error, or an untyped nil when err is nil.
func FromFetch(err error) error {
	if err == nil {
		return nil
	}

	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}

	out := &Error{Kind: Upstream, Err: err}

	var fe *upstream.FetchError
	if errors.As(err, &fe) {
		out.Upstream = fe.Upstream
		switch fe.Class {
		case upstream.NotFound:
			out.Kind = NotFound
		case upstream.BadRequest:
			out.Kind = BadRequest
		}
	}

	return out
}

// KindOf reports the kind of err. Errors that are not gateway errors are
// reported as Upstream.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return Upstream
}
