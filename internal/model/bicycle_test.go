package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	merged := Merge(&Bicycle{ID: "b-7", Color: "red"}, &Brand{Name: "Acme"})

	assert.Equal(t, &BrandedBicycle{ID: "b-7", Color: "red", Brand: "Acme"}, merged)
}

func TestBrandedBicycle_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Merge(&Bicycle{ID: "42", Color: "red"}, &Brand{Name: "Acme"}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"42","color":"red","brand":"Acme"}`, string(raw))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Bicycle{ID: "1"}).Validate())
	assert.Error(t, (&Bicycle{Color: "red"}).Validate())
	assert.NoError(t, (&Brand{Name: "Acme"}).Validate())
	assert.Error(t, (&Brand{}).Validate())
}
