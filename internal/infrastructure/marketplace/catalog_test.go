package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerceops/backend/internal/domain/integration"
)

func validDef(id string) integration.ModuleDefinition {
	return integration.ModuleDefinition{
		ID:          id,
		DisplayName: id,
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 10},
	}
}

func TestNewCatalog_BuiltinDefinitions(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	ids := c.IDs()
	assert.NotEmpty(t, ids)

	// Every built-in definition resolves a default version and a usable policy
	for _, id := range ids {
		def, err := c.Get(id)
		require.NoError(t, err, id)
		v, ok := def.DefaultVersion()
		assert.True(t, ok, "%s must have exactly one default version", id)
		assert.NotEmpty(t, v)
		assert.Greater(t, def.RateLimit.RestoreRatePerSecond, 0.0, id)
		assert.Greater(t, def.RateLimit.BurstCapacity, 0, id)
	}
}

func TestCatalog_Get(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	def, err := c.Get("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", def.ID)
	assert.Contains(t, def.Dependencies, "tokens")

	_, err = c.Get("warpDrive")
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
}

func TestCatalog_DefaultVersion(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	v, err := c.DefaultVersion("orders")
	require.NoError(t, err)
	assert.Equal(t, "v0", v)

	_, err = c.DefaultVersion("warpDrive")
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
}

func TestCatalog_RejectsDuplicateIDs(t *testing.T) {
	_, err := newCatalog([]integration.ModuleDefinition{validDef("a"), validDef("a")})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)
}

func TestCatalog_RejectsBadDefaultVersionCount(t *testing.T) {
	noDefault := validDef("a")
	noDefault.Versions = []integration.ModuleVersion{{Version: "v1"}}
	_, err := newCatalog([]integration.ModuleDefinition{noDefault})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)

	twoDefaults := validDef("b")
	twoDefaults.Versions = []integration.ModuleVersion{
		{Version: "v1", IsDefault: true},
		{Version: "v2", IsDefault: true},
	}
	_, err = newCatalog([]integration.ModuleDefinition{twoDefaults})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)
}

func TestCatalog_RejectsUnresolvableDependency(t *testing.T) {
	def := validDef("orders")
	def.Dependencies = []string{"tokens"}
	_, err := newCatalog([]integration.ModuleDefinition{def})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)
}

func TestCatalog_RejectsInvalidPolicy(t *testing.T) {
	def := validDef("a")
	def.RateLimit.RestoreRatePerSecond = 0
	_, err := newCatalog([]integration.ModuleDefinition{def})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)

	def = validDef("b")
	def.RateLimit = integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 0}
	_, err = newCatalog([]integration.ModuleDefinition{def})
	assert.ErrorIs(t, err, integration.ErrCatalogIntegrity)
}

func TestCatalog_IDsAreCopies(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	ids := c.IDs()
	ids[0] = "mutated"
	assert.NotEqual(t, "mutated", c.IDs()[0])
}
