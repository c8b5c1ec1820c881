// Package repository holds the gateway's data sources.
//
// The gateway stores nothing itself; its records live in the two
// upstream resource services, so each repository is an upstream client
// bound to one base address.
package repository
