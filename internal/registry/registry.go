// Package registry maps locations to the provider that serves them.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"docbridge/internal/config"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/logging"
	"docbridge/internal/provider"
	"docbridge/internal/provider/archive"
	"docbridge/internal/provider/local"
	s3provider "docbridge/internal/provider/s3"
	"docbridge/internal/provider/smb"
	"docbridge/internal/secret"
)

// NewProviderFromConfig creates a provider from a type string and JSON config.
// store backs SMB credentials and may be nil.
func NewProviderFromConfig(ctx context.Context, providerType string, raw json.RawMessage, store secret.Store) (provider.Provider, error) {
	switch providerType {
	case local.TypeName:
		return local.NewTreeFromJSON(raw)
	case smb.TypeName:
		cfg, err := smb.ParseConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("parse smb config: %w", err)
		}
		return smb.New(cfg, store), nil
	case s3provider.TypeName:
		return s3provider.NewFromJSON(ctx, raw)
	case archive.TypeName:
		return archive.NewFromJSON(ctx, raw)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}

// Registry resolves direct locations to the host filesystem provider and
// managed locations to the provider registered for their authority.
type Registry struct {
	mu          sync.RWMutex
	direct      provider.Provider
	byAuthority map[string]provider.Provider
	store       secret.Store
}

// New creates an empty registry. store may be nil.
func New(store secret.Store) *Registry {
	return &Registry{
		direct:      local.NewDirect(),
		byAuthority: make(map[string]provider.Provider),
		store:       store,
	}
}

// Register binds authority to p, closing any provider it replaces.
func (r *Registry) Register(authority string, p provider.Provider) {
	r.mu.Lock()
	old := r.byAuthority[authority]
	r.byAuthority[authority] = p
	r.mu.Unlock()
	if old != nil && old != p {
		old.Close()
	}
}

// Load instantiates every configured provider. Entries that fail to
// initialize are logged and skipped; the count of loaded providers is returned.
func (r *Registry) Load(ctx context.Context, entries []config.ProviderConfig) int {
	loaded := 0
	for _, e := range entries {
		p, err := NewProviderFromConfig(ctx, e.Type, e.Config, r.store)
		if err != nil {
			logging.Error("failed to initialize provider",
				zap.String("authority", e.Authority),
				zap.String("type", e.Type),
				zap.Error(err))
			continue
		}
		r.Register(e.Authority, p)
		loaded++
	}
	logging.Info("provider registry loaded",
		zap.Int("providers", loaded),
		zap.Int("configured", len(entries)))
	return loaded
}

// Provider returns the provider serving loc.
func (r *Registry) Provider(loc location.Location) (provider.Provider, error) {
	switch loc.Kind() {
	case location.KindDirect:
		return r.direct, nil
	case location.KindManaged:
		r.mu.RLock()
		p, ok := r.byAuthority[loc.Authority()]
		r.mu.RUnlock()
		if !ok {
			return nil, apperrors.NewProviderError("resolve", loc.String(),
				"no provider for authority "+loc.Authority(), apperrors.ErrUnknownAuthority)
		}
		return p, nil
	default:
		return nil, apperrors.NewLocationError("resolve", loc.String(), "invalid location", nil)
	}
}

// Resolve returns the provider serving loc and the document ID it addresses.
// Direct locations use their path as the document ID.
func (r *Registry) Resolve(loc location.Location) (provider.Provider, string, error) {
	p, err := r.Provider(loc)
	if err != nil {
		return nil, "", err
	}
	if loc.Kind() == location.KindDirect {
		return p, loc.Path(), nil
	}
	id, err := loc.DocumentID()
	if err != nil {
		return nil, "", err
	}
	return p, id, nil
}

// TreeRoot returns the tree location of the root of the provider registered
// for authority.
func (r *Registry) TreeRoot(authority string) (location.Location, error) {
	r.mu.RLock()
	p, ok := r.byAuthority[authority]
	r.mu.RUnlock()
	if !ok {
		return location.Location{}, apperrors.NewProviderError("tree_root", authority,
			"no provider for authority", apperrors.ErrUnknownAuthority)
	}
	rooted, ok := p.(interface{ RootID() string })
	if !ok {
		return location.Location{}, apperrors.NewProviderError("tree_root", authority,
			"provider has no root", apperrors.ErrUnsupported)
	}
	return location.Tree(authority, rooted.RootID()), nil
}

// Authorities lists registered authorities in sorted order.
func (r *Registry) Authorities() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byAuthority))
	for a := range r.byAuthority {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Close closes every registered provider.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for a, p := range r.byAuthority {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.byAuthority, a)
	}
	return first
}
