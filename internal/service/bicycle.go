package service

import (
	"context"
	"errors"

	"github.com/deppfellow/bicycle-gateway/internal/gatewayerr"
	"github.com/deppfellow/bicycle-gateway/internal/model"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads one record by key. Failures are *upstream.FetchError; on
// success the record is non-nil.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, key string) (*T, error)
}

// AggregationObserver receives the result of every aggregation: "ok" or
// the gateway error kind.
type AggregationObserver interface {
	ObserveAggregation(result string)
}

// BicycleService joins a bicycle with its brand.
type BicycleService struct {
	bicycles Fetcher[model.Bicycle]
	brands   Fetcher[model.Brand]
	observer AggregationObserver
}

// NewBicycleService wires the two fetchers. observer may be nil.
func NewBicycleService(bicycles Fetcher[model.Bicycle], brands Fetcher[model.Brand], observer AggregationObserver) *BicycleService {
	return &BicycleService{
		bicycles: bicycles,
		brands:   brands,
		observer: observer,
	}
}

// Aggregate fetches the bicycle and the brand for key concurrently and
// merges them. It returns either a complete entity or a *gatewayerr.Error,
// never both.
//
// When both fetches fail the bicycle failure is reported.
func (s *BicycleService) Aggregate(ctx context.Context, key string) (*model.BrandedBicycle, error) {
	result, err := s.aggregate(ctx, key)

	if s.observer != nil {
		label := "ok"
		if err != nil {
			label = gatewayerr.KindOf(err).String()
		}
		s.observer.ObserveAggregation(label)
	}

	return result, err
}

func (s *BicycleService) aggregate(ctx context.Context, key string) (*model.BrandedBicycle, error) {
	if key == "" {
		return nil, gatewayerr.New(gatewayerr.BadRequest, errors.New("empty key"))
	}

	var (
		bicycle    *model.Bicycle
		brand      *model.Brand
		bicycleErr error
		brandErr   error
	)

	// Each outcome is kept on its own; Wait's first error would depend on
	// which upstream answered first. Neither fetch cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		bicycle, bicycleErr = s.bicycles.Fetch(ctx, key)
		return bicycleErr
	})
	g.Go(func() error {
		brand, brandErr = s.brands.Fetch(ctx, key)
		return brandErr
	})
	_ = g.Wait()

	if bicycleErr != nil {
		return nil, gatewayerr.FromFetch(bicycleErr)
	}
	if brandErr != nil {
		return nil, gatewayerr.FromFetch(brandErr)
	}

	if bicycle == nil || brand == nil {
		return nil, gatewayerr.New(gatewayerr.Upstream, errors.New("fetch returned no record"))
	}

	return model.Merge(bicycle, brand), nil
}
