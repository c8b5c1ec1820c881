// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares, the system routes and the
// gateway route, mapping each path to its handler.
package router

import (
	"net/http"

	"github.com/deppfellow/bicycle-gateway/internal/handler"
	"github.com/deppfellow/bicycle-gateway/internal/middleware"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance with the full middleware chain.
//
// Order matters: the request id comes first so every later layer can use
// it, and the New Relic transaction must exist before the context logger
// reads its trace ids.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	// Static system routes are registered before the catch-all key route;
	// Echo prefers them regardless, so "status" and "metrics" are not
	// reachable as keys.
	registerSystemRoutes(router, s, h)

	router.GET("/:id", handler.Handle(
		h.Bicycle.Handler,
		h.Bicycle.GetBicycle,
		http.StatusOK,
		func() *handler.GetBicycleRequest { return &handler.GetBicycleRequest{} },
	), middlewares.RateLimit.Limit())

	return router
}
