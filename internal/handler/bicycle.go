package handler

import (
	"net/url"

	"github.com/deppfellow/bicycle-gateway/internal/gatewayerr"
	"github.com/deppfellow/bicycle-gateway/internal/model"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/deppfellow/bicycle-gateway/internal/service"
	"github.com/deppfellow/bicycle-gateway/internal/validation"
	"github.com/labstack/echo/v4"
)

// GetBicycleRequest is the path input of GET /:id.
type GetBicycleRequest struct {
	ID string `param:"id" validate:"required"`
}

func (r *GetBicycleRequest) Validate() error {
	return validation.Struct(r)
}

// BicycleHandler serves the aggregated bicycle view.
type BicycleHandler struct {
	Handler
	bicycleService *service.BicycleService
}

func NewBicycleHandler(s *server.Server, bicycleService *service.BicycleService) *BicycleHandler {
	return &BicycleHandler{
		Handler:        NewHandler(s),
		bicycleService: bicycleService,
	}
}

// GetBicycle returns the bicycle joined with its brand. Errors are passed
// through unchanged; the global error handler picks the status.
func (h *BicycleHandler) GetBicycle(c echo.Context, req *GetBicycleRequest) (*model.BrandedBicycle, error) {
	key, err := pathKey(c, req.ID)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.BadRequest, err)
	}

	return h.bicycleService.Aggregate(c.Request().Context(), key)
}

// pathKey returns the decoded form of a path parameter. Echo matches on
// URL.RawPath when it is set, and then params are still percent-encoded.
func pathKey(c echo.Context, param string) (string, error) {
	if c.Request().URL.RawPath == "" {
		return param, nil
	}

	return url.PathUnescape(param)
}
