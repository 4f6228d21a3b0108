package genmodel

import (
	"context"
	"strings"
	"sync"

	"github.com/kestrelhq/pagegen/internal/apperr"
)

// ProviderFactory builds a Provider for a given model name. Registry caches
// the result per (provider, model) pair, since the Worker resolves a
// provider on every single job rather than once per long-lived session the
// way the teacher's chat handler did. The factory runs outside the lock, so
// concurrent first lookups of the same pair may each call it; the last
// result stored is the one cached.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type providerKey struct {
	name  string
	model string
}

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	resolved  map[providerKey]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
		resolved:  make(map[providerKey]Provider),
	}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get resolves the Provider registered under name, building and caching it
// for model on first use. An unrecognized name is a configuration mistake,
// not a transient model failure, so it is reported as apperr.KindPermanent —
// the Worker must never retry a job into a provider that will never exist.
func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = normalize(name)
	key := providerKey{name: name, model: strings.TrimSpace(model)}

	r.mu.RLock()
	if p, ok := r.resolved[key]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.KindPermanent, "unknown model provider: "+name)
	}

	p, err := f(ctx, model)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermanent, "build provider "+name, err)
	}

	r.mu.Lock()
	r.resolved[key] = p
	r.mu.Unlock()
	return p, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
