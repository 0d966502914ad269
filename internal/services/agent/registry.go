package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// NamedProvider pairs a provider with the record key it fills.
type NamedProvider struct {
	Provider ports.Provider
	Name     string
}

// Registry holds the providers run on every submission. It is filled once at
// startup and sealed before the first collection.
type Registry struct {
	index     map[string]struct{}
	providers []NamedProvider
	mu        sync.RWMutex
	sealed    bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]struct{})}
}

// Register adds p under name. Empty names, nil providers, duplicates and
// registration after Seal fail with a *domain.ConfigurationError.
func (r *Registry) Register(name string, p ports.Provider) error {
	if err := r.register(name, p); err != nil {
		return &domain.ConfigurationError{Err: err}
	}
	return nil
}

func (r *Registry) register(name string, p ports.Provider) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidProvider)
	}
	if p == nil {
		return fmt.Errorf("%w: %q is nil", domain.ErrInvalidProvider, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot add %q", domain.ErrRegistrySealed, name)
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateProvider, name)
	}
	r.index[name] = struct{}{}
	r.providers = append(r.providers, NamedProvider{Name: name, Provider: p})
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// All returns the providers in registration order.
func (r *Registry) All() []NamedProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]NamedProvider(nil), r.providers...)
}

// Len reports the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// BuildRegistry registers the named providers from catalog in order. Every
// unknown or repeated name is reported in a single ConfigurationError.
func BuildRegistry(names []string, catalog map[string]ports.Provider) (*Registry, error) {
	reg := NewRegistry()
	var merr *multierror.Error
	for _, name := range names {
		name = strings.TrimSpace(name)
		p, ok := catalog[name]
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name))
			continue
		}
		if err := reg.register(name, p); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, &domain.ConfigurationError{Err: err}
	}
	return reg, nil
}
