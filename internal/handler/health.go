package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/bicycle-gateway/internal/middleware"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthCheckFunc checks one dependency.
type HealthCheckFunc func(ctx context.Context) error

// HealthHandler reports whether the gateway and its dependencies are reachable.
type HealthHandler struct {
	Handler
	checks map[string]HealthCheckFunc
}

// NewHealthHandler constructs a HealthHandler. Only the checks listed in
// observability.health_checks.checks are run.
func NewHealthHandler(s *server.Server, checks map[string]HealthCheckFunc) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  checks,
	}
}

// CheckHealth returns system health status and dependency checks.
//
// Response includes:
// - overall status (healthy/unhealthy)
// - timestamp (UTC)
// - environment (from config)
// - checks map (redis, bicycle, brand)
//
// It returns 200 when every required check passes, otherwise 503. Redis is
// required only while rate limiting is enabled; the limiter fails open.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]interface{})
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	isHealthy := true

	obs := h.server.Config.Observability
	if obs != nil && obs.HealthChecks.Enabled {
		for _, name := range obs.HealthChecks.Checks {
			check, ok := h.checks[name]
			if !ok {
				continue
			}

			checkStart := time.Now()
			ctx, cancel := context.WithTimeout(c.Request().Context(), obs.HealthChecks.Timeout)
			err := check(ctx)
			cancel()
			elapsed := time.Since(checkStart)

			if err == nil {
				checks[name] = map[string]interface{}{
					"status":        "healthy",
					"response_time": elapsed.String(),
				}

				logger.Debug().
					Str("check", name).
					Dur("response_time", elapsed).
					Msg("health check passed")
				continue
			}

			checks[name] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}

			if name != "redis" || h.server.Config.RateLimit.Enabled {
				isHealthy = false
			}

			logger.Error().
				Err(err).
				Str("check", name).
				Dur("response_time", elapsed).
				Msg("health check failed")

			h.recordHealthCheckError(name, name+"_unhealthy", elapsed, err)
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthCheckError("overall", "overall_unhealthy", time.Since(start), nil)

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		h.recordHealthCheckError("response", "json_response_error", time.Since(start), err)

		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

// recordHealthCheckError emits a HealthCheckError custom event when New Relic is enabled.
func (h *HealthHandler) recordHealthCheckError(checkType, errorType string, elapsed time.Duration, err error) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}

	attrs := map[string]interface{}{
		"check_type":       checkType,
		"operation":        "health_check",
		"error_type":       errorType,
		"response_time_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		attrs["error_message"] = err.Error()
	}

	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", attrs)
}
