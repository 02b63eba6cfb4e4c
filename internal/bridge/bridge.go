// Package bridge implements the document-tree filesystem bridge: content
// I/O, descriptor export and tree enumeration over the providers a
// Resolver knows about. Bridge methods return structured errors; Boundary
// wraps them for callers that only understand absent/present results.
package bridge

import (
	"context"
	"time"

	"docbridge/internal/location"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// Resolver maps a location to the provider that serves it.
type Resolver interface {
	// Provider returns the provider serving loc.
	Provider(loc location.Location) (provider.Provider, error)
	// Resolve returns the provider serving loc and the document it addresses.
	Resolve(loc location.Location) (provider.Provider, string, error)
}

// Bridge runs every operation synchronously on the calling goroutine and
// holds no mutable state of its own.
type Bridge struct {
	resolver Resolver
}

// New creates a bridge over resolver.
func New(resolver Resolver) *Bridge {
	return &Bridge{resolver: resolver}
}

// observe records the outcome of one operation; use with defer.
func observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, time.Since(start), *err == nil)
}

// openDocument resolves loc and opens it. ctx is handed to the provider as is.
func (b *Bridge) openDocument(ctx context.Context, loc location.Location, mode provider.Mode) (provider.Provider, provider.Document, error) {
	p, id, err := b.resolver.Resolve(loc)
	if err != nil {
		return nil, nil, err
	}
	doc, err := p.OpenDocument(ctx, id, mode)
	if err != nil {
		return nil, nil, err
	}
	return p, doc, nil
}
