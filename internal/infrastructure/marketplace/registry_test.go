package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commerceops/backend/internal/domain/integration"
)

// stubModule satisfies integration.Module for registry tests.
type stubModule struct {
	id      string
	version string
}

func (m stubModule) ID() string      { return m.id }
func (m stubModule) Version() string { return m.version }

func registryTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := newCatalog([]integration.ModuleDefinition{
		{
			ID:          "tokens",
			DisplayName: "Tokens",
			Versions:    []integration.ModuleVersion{{Version: "2021-03-01", IsDefault: true}},
			RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 10},
		},
		{
			ID:           "orders",
			DisplayName:  "Orders",
			Versions:     []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
			RateLimit:    integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 30},
			Dependencies: []string{"tokens"},
		},
		{
			ID:          "sellers",
			DisplayName: "Sellers",
			Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
			RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.016, BurstCapacity: 15},
		},
	})
	require.NoError(t, err)
	return c
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())

	require.NoError(t, r.Register(stubModule{id: "tokens", version: "2021-03-01"}))

	m, err := r.Get("tokens")
	require.NoError(t, err)
	assert.Equal(t, "2021-03-01", m.Version())

	_, err = r.Get("orders")
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
}

func TestRegistry_DuplicateKeepsFirst(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())

	require.NoError(t, r.Register(stubModule{id: "sellers", version: "v1"}))
	err := r.Register(stubModule{id: "sellers", version: "v1-replacement"})
	assert.ErrorIs(t, err, integration.ErrDuplicateModule)

	m, err := r.Get("sellers")
	require.NoError(t, err)
	assert.Equal(t, "v1", m.Version(), "first registration stays intact")
}

func TestRegistry_RejectsUncataloguedModule(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())
	err := r.Register(stubModule{id: "imaginary", version: "v9"})
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
}

func TestRegistry_DependencyOrdering(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())

	// orders requires tokens first
	err := r.Register(stubModule{id: "orders", version: "v0"})
	assert.ErrorIs(t, err, integration.ErrDependencyNotReady)

	require.NoError(t, r.Register(stubModule{id: "tokens", version: "2021-03-01"}))
	assert.NoError(t, r.Register(stubModule{id: "orders", version: "v0"}))
}

func TestRegistry_ListInsertionOrder(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())

	require.NoError(t, r.Register(stubModule{id: "sellers", version: "v1"}))
	require.NoError(t, r.Register(stubModule{id: "tokens", version: "2021-03-01"}))
	require.NoError(t, r.Register(stubModule{id: "orders", version: "v0"}))

	assert.Equal(t, []string{"sellers", "tokens", "orders"}, r.List())
}

func TestRegistry_DeregisterBlockedByDependents(t *testing.T) {
	r := NewRegistry(registryTestCatalog(t), zap.NewNop())

	require.NoError(t, r.Register(stubModule{id: "tokens", version: "2021-03-01"}))
	require.NoError(t, r.Register(stubModule{id: "orders", version: "v0"}))

	err := r.Deregister("tokens")
	assert.ErrorIs(t, err, integration.ErrDependencyNotReady)

	require.NoError(t, r.Deregister("orders"))
	require.NoError(t, r.Deregister("tokens"))
	assert.Empty(t, r.List())

	err = r.Deregister("tokens")
	assert.ErrorIs(t, err, integration.ErrUnknownModule)
}
