package middleware

import (
	"net/http"

	"github.com/deppfellow/bicycle-gateway/internal/errs"
	"github.com/deppfellow/bicycle-gateway/internal/gatewayerr"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GlobalMiddlewares groups the middleware applied to every route and the
// global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS returns Echo's CORS middleware configured from the server config.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	})
}

// RequestLogger writes one "API" log line per request, with severity based
// on the final status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// When a handler returns an error the response has not been
			// written yet; GlobalErrorHandler picks the final status later.
			// Reference: https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				var echoErr *echo.HTTPError
				if errors.As(v.Error, &echoErr) {
					statusCode = echoErr.Code
				} else {
					statusCode = gatewayerr.HandleError(v.Error).Status
				}
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn().Err(v.Error)
			default:
				e = logger.Info()
			}

			if requestID := GetRequestID(c); requestID != "" {
				e = e.Str("request_id", requestID)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// Recover turns handler panics into errors for GlobalErrorHandler.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

// Secure adds the standard security-related response headers.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel for the entire HTTP server.
//
// The original error is logged in full; the client only receives the
// sanitized errs.HTTPError envelope.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
	case errors.As(err, &echoErr):
		if echoErr.Code == http.StatusNotFound {
			httpErr = errs.NewNotFoundError("Route not found", false, nil)
		} else {
			message, ok := echoErr.Message.(string)
			if !ok {
				message = http.StatusText(echoErr.Code)
			}
			httpErr = &errs.HTTPError{
				Code:    errs.StatusCode(echoErr.Code),
				Message: message,
				Status:  echoErr.Code,
			}
		}
	default:
		// Gateway errors and anything unrecognized.
		httpErr = gatewayerr.HandleError(err)
	}

	logger := *GetLogger(c)

	var event *zerolog.Event
	if httpErr.Status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	} else {
		event = logger.Warn()
	}

	event = event.
		Err(originalErr).
		Int("status", httpErr.Status).
		Str("error_code", httpErr.Code)

	var ge *gatewayerr.Error
	if errors.As(originalErr, &ge) {
		event = event.Str("error_kind", ge.Kind.String())
		if ge.Upstream != "" {
			event = event.Str("upstream", ge.Upstream)
		}
	}

	event.Msg(httpErr.Message)

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(httpErr.Status)
		return
	}

	_ = c.JSON(httpErr.Status, errs.HTTPError{
		Code:     httpErr.Code,
		Message:  httpErr.Message,
		Status:   httpErr.Status,
		Override: httpErr.Override,
		Errors:   httpErr.Errors,
	})
}
