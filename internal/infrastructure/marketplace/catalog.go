package marketplace

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/commerceops/backend/internal/domain/integration"
)

// Catalog holds the immutable module definitions loaded at process start.
// Data-integrity faults (duplicate ids, zero or multiple default versions,
// unresolvable dependency ids) are rejected here, not at call time.
type Catalog struct {
	defs map[string]*integration.ModuleDefinition
	ids  []string
}

// NewCatalog builds the catalog from the built-in module definitions.
func NewCatalog() (*Catalog, error) {
	return newCatalog(defaultModuleDefinitions)
}

func newCatalog(defs []integration.ModuleDefinition) (*Catalog, error) {
	validate := validator.New()

	c := &Catalog{
		defs: make(map[string]*integration.ModuleDefinition, len(defs)),
		ids:  make([]string, 0, len(defs)),
	}

	for i := range defs {
		def := defs[i]
		if err := validate.Struct(&def); err != nil {
			return nil, fmt.Errorf("%w: module %q: %v", integration.ErrCatalogIntegrity, def.ID, err)
		}
		if _, ok := c.defs[def.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate module id %q", integration.ErrCatalogIntegrity, def.ID)
		}
		if _, ok := def.DefaultVersion(); !ok {
			return nil, fmt.Errorf("%w: module %q must have exactly one default version", integration.ErrCatalogIntegrity, def.ID)
		}
		c.defs[def.ID] = &def
		c.ids = append(c.ids, def.ID)
	}

	// Dependency ids must resolve within the catalog
	for _, def := range c.defs {
		for _, dep := range def.Dependencies {
			if _, ok := c.defs[dep]; !ok {
				return nil, fmt.Errorf("%w: module %q depends on unknown module %q", integration.ErrCatalogIntegrity, def.ID, dep)
			}
		}
	}

	return c, nil
}

// Get returns the definition for the given module id.
func (c *Catalog) Get(id string) (*integration.ModuleDefinition, error) {
	def, ok := c.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", integration.ErrUnknownModule, id)
	}
	return def, nil
}

// DefaultVersion returns the default version for the given module id.
func (c *Catalog) DefaultVersion(id string) (string, error) {
	def, err := c.Get(id)
	if err != nil {
		return "", err
	}
	// Load-time validation guarantees exactly one default
	v, _ := def.DefaultVersion()
	return v, nil
}

// IDs returns all module ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}
