package gatewayerr

import (
	"errors"
	"net/http"

	"github.com/deppfellow/bicycle-gateway/internal/errs"
)

// HandleError converts any error into the client-facing application error.
//
// Output:
//   - If already *errs.HTTPError: returned unchanged
//   - NotFound: 404
//   - BadRequest: 400
//   - Upstream, or any other error: 500
//
// Messages are the generic status text. Upstream names, status codes and
// payloads stay in the logs.
func HandleError(err error) *errs.HTTPError {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var ge *Error
	if !errors.As(err, &ge) {
		return errs.NewInternalServerError()
	}

	switch ge.Kind {
	case NotFound:
		return errs.NewNotFoundError(http.StatusText(http.StatusNotFound), false, nil)
	case BadRequest:
		return errs.NewBadRequestError(http.StatusText(http.StatusBadRequest), false, nil, nil)
	default:
		return errs.NewInternalServerError()
	}
}
