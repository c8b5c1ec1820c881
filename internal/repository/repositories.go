package repository

import (
	"github.com/deppfellow/bicycle-gateway/internal/model"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/deppfellow/bicycle-gateway/internal/upstream"
)

const (
	BicycleUpstream = "bicycle"
	BrandUpstream   = "brand"
)

// Repositories is a container for all data sources.
type Repositories struct {
	Bicycles *upstream.Client[model.Bicycle]
	Brands   *upstream.Client[model.Brand]
}

// NewRepositories builds one client per upstream from the server config.
// Both share the fetch timeout, body limit, metrics and slow-fetch threshold.
func NewRepositories(s *server.Server) *Repositories {
	cfg := s.Config.Upstream

	var opts []upstream.Option
	if s.Metrics != nil {
		opts = append(opts, upstream.WithObserver(s.Metrics))
	}
	if s.Config.Observability != nil {
		opts = append(opts, upstream.WithSlowThreshold(s.Config.Observability.Logging.SlowUpstreamThreshold))
	}

	return &Repositories{
		Bicycles: upstream.NewClient[model.Bicycle](BicycleUpstream, cfg.BicycleURL, cfg.Timeout, cfg.MaxBodyBytes, opts...),
		Brands:   upstream.NewClient[model.Brand](BrandUpstream, cfg.BrandURL, cfg.Timeout, cfg.MaxBodyBytes, opts...),
	}
}
