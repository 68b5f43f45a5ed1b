// Package modules contains the marketplace module façades. Each façade is a
// thin, uniform wrapper over one external resource group: every operation
// builds a RequestSpec and issues exactly one dispatcher call, or drains a
// cursor-paginated listing through marketplace.GetAllPages.
//
// All factories follow the same convention: New<X>Module(deps, version),
// where an empty version resolves to the catalog default.
package modules

import (
	"fmt"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// ErrUnknownVersion indicates a requested version the catalog does not
// publish for the module.
var ErrUnknownVersion = fmt.Errorf("modules: unknown module version")

// ModuleDeps is the explicit context object every module factory receives.
// It replaces global singletons: dispatcher, catalog and pagination ceiling
// are wired once at startup and passed down.
type ModuleDeps struct {
	Dispatcher *marketplace.Dispatcher
	Catalog    *marketplace.Catalog
	// MaxPages bounds pagination drains, 0 = marketplace.DefaultMaxPages
	MaxPages int
}

// baseModule carries the identity shared by all façades.
type baseModule struct {
	id      string
	version string
	deps    ModuleDeps
}

// newBaseModule resolves the module version against the catalog. An empty
// version selects the catalog default; an unpublished version is rejected.
func newBaseModule(deps ModuleDeps, id, version string) (baseModule, error) {
	def, err := deps.Catalog.Get(id)
	if err != nil {
		return baseModule{}, err
	}
	if version == "" {
		version, err = deps.Catalog.DefaultVersion(id)
		if err != nil {
			return baseModule{}, err
		}
	} else if !def.HasVersion(version) {
		return baseModule{}, fmt.Errorf("%w: %s %q", ErrUnknownVersion, id, version)
	}
	return baseModule{id: id, version: version, deps: deps}, nil
}

// ID implements integration.Module.
func (m baseModule) ID() string {
	return m.id
}

// Version implements integration.Module.
func (m baseModule) Version() string {
	return m.version
}

func (m baseModule) maxPages() int {
	if m.deps.MaxPages > 0 {
		return m.deps.MaxPages
	}
	return marketplace.DefaultMaxPages
}

var _ integration.Module = baseModule{}
