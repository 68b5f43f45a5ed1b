package marketplace

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/commerceops/backend/internal/domain/integration"
)

// Registry holds the live module instances keyed by id. Registration order
// must respect catalog dependencies: registering a module whose dependency
// is not yet registered fails - there is no implicit ordering or
// auto-resolution, sequencing is the caller's responsibility.
type Registry struct {
	catalog *Catalog
	logger  *zap.Logger

	mu      sync.RWMutex
	modules map[string]integration.Module
	order   []string
}

// NewRegistry creates an empty registry validating against the catalog.
func NewRegistry(catalog *Catalog, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		catalog: catalog,
		logger:  logger,
		modules: make(map[string]integration.Module),
	}
}

// Register adds a module instance. It fails with ErrDuplicateModule when the
// id is already present (the first registration stays intact), with
// ErrUnknownModule when the catalog has no definition for the id, and with
// ErrDependencyNotReady when a catalog dependency is not yet registered.
func (r *Registry) Register(m integration.Module) error {
	id := m.ID()

	def, err := r.catalog.Get(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[id]; ok {
		return fmt.Errorf("%w: %q", integration.ErrDuplicateModule, id)
	}
	for _, dep := range def.Dependencies {
		if _, ok := r.modules[dep]; !ok {
			return fmt.Errorf("%w: %q requires %q", integration.ErrDependencyNotReady, id, dep)
		}
	}

	r.modules[id] = m
	r.order = append(r.order, id)
	r.logger.Info("registered marketplace module",
		zap.String("module", id),
		zap.String("version", m.Version()),
	)
	return nil
}

// Get returns the module registered under id.
func (r *Registry) Get(id string) (integration.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", integration.ErrUnknownModule, id)
	}
	return m, nil
}

// List returns the registered module ids in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Deregister removes a module instance. Modules that other registered
// modules depend on cannot be removed.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[id]; !ok {
		return fmt.Errorf("%w: %q", integration.ErrUnknownModule, id)
	}
	for _, otherID := range r.order {
		if otherID == id {
			continue
		}
		def, err := r.catalog.Get(otherID)
		if err != nil {
			continue
		}
		for _, dep := range def.Dependencies {
			if dep == id {
				return fmt.Errorf("%w: %q is required by %q", integration.ErrDependencyNotReady, id, otherID)
			}
		}
	}

	delete(r.modules, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
