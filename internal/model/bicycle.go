// Package model holds the records the gateway reads from its upstreams and
// the merged entity it returns.
package model

import "github.com/deppfellow/bicycle-gateway/internal/validation"

// Bicycle is the record served by the bicycle upstream.
type Bicycle struct {
	ID    string `json:"id" validate:"required"`
	Color string `json:"color"`
}

func (b *Bicycle) Validate() error {
	return validation.Struct(b)
}

// Brand is the record served by the brand upstream.
type Brand struct {
	Name string `json:"name" validate:"required"`
}

func (b *Brand) Validate() error {
	return validation.Struct(b)
}

// BrandedBicycle is the gateway response: a bicycle joined with its brand.
type BrandedBicycle struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Brand string `json:"brand"`
}

// Merge joins the two records. The id is taken from the bicycle record,
// never from the key the caller asked for.
func Merge(bicycle *Bicycle, brand *Brand) *BrandedBicycle {
	return &BrandedBicycle{
		ID:    bicycle.ID,
		Color: bicycle.Color,
		Brand: brand.Name,
	}
}
