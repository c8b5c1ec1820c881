package handler

import (
	"context"

	"github.com/deppfellow/bicycle-gateway/internal/repository"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/deppfellow/bicycle-gateway/internal/service"
)

// Handlers is a container that groups all HTTP handlers.
type Handlers struct {
	Health  *HealthHandler
	Bicycle *BicycleHandler
}

// NewHandlers constructs the handler container. The repositories are only
// used for the upstream reachability checks of the health handler.
func NewHandlers(s *server.Server, services *service.Services, repos *repository.Repositories) *Handlers {
	checks := map[string]HealthCheckFunc{
		repository.BicycleUpstream: repos.Bicycles.Ping,
		repository.BrandUpstream:   repos.Brands.Ping,
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}
	}

	return &Handlers{
		Health:  NewHealthHandler(s, checks),
		Bicycle: NewBicycleHandler(s, services.Bicycle),
	}
}
