// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated input from the handler, runs the
// aggregation against the upstream repositories and maps
// their failures into gateway errors.
package service
