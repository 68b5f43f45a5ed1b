package integration

// ---------------------------------------------------------------------------
// Module Metadata
// ---------------------------------------------------------------------------

// ModuleVersion is one published version of a module. Exactly one version
// per module carries IsDefault.
type ModuleVersion struct {
	Version   string `validate:"required"`
	IsDefault bool
	// Deprecated marks versions the provider has scheduled for removal
	Deprecated bool
}

// RateLimitPolicy is the provider-published throttle for one module.
type RateLimitPolicy struct {
	// RestoreRatePerSecond is the steady-state token refill rate
	RestoreRatePerSecond float64 `validate:"gt=0"`
	// BurstCapacity is the bucket capacity
	BurstCapacity int `validate:"gt=0"`
	// MaximumRequestQuota caps requests per rolling 24h window, 0 = no quota
	MaximumRequestQuota int64 `validate:"gte=0"`
}

// ModuleDefinition is the static catalog record for one module. Definitions
// are loaded once at process start and never mutated.
type ModuleDefinition struct {
	// ID is the unique module identifier (e.g. "orders")
	ID string `validate:"required"`
	// DisplayName is the human-readable module name
	DisplayName string `validate:"required"`
	// Versions is the ordered list of published versions
	Versions []ModuleVersion `validate:"min=1,dive"`
	// RateLimit is the module's independent throttle policy
	RateLimit RateLimitPolicy
	// Dependencies lists module ids that must be registered first
	Dependencies []string
}

// DefaultVersion returns the single version flagged as default, or false
// when the definition carries zero or more than one default. Catalog load
// rejects such definitions, so a false here indicates a corrupted record.
func (d *ModuleDefinition) DefaultVersion() (string, bool) {
	var found string
	count := 0
	for _, v := range d.Versions {
		if v.IsDefault {
			found = v.Version
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return found, true
}

// HasVersion reports whether the definition publishes the given version.
func (d *ModuleDefinition) HasVersion(version string) bool {
	for _, v := range d.Versions {
		if v.Version == version {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Module Port
// ---------------------------------------------------------------------------

// Module is a live façade over one external resource group, bound to one
// version and one rate-limit policy.
type Module interface {
	// ID returns the module identifier matching its catalog definition
	ID() string
	// Version returns the bound API version
	Version() string
}
