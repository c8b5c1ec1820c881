package service

import (
	"github.com/deppfellow/bicycle-gateway/internal/repository"
	"github.com/deppfellow/bicycle-gateway/internal/server"
)

type Services struct {
	Bicycle *BicycleService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var observer AggregationObserver
	if s.Metrics != nil {
		observer = s.Metrics
	}

	return &Services{
		Bicycle: NewBicycleService(repos.Bicycles, repos.Brands, observer),
	}, nil
}
