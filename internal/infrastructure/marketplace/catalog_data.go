package marketplace

import "github.com/commerceops/backend/internal/domain/integration"

// defaultModuleDefinitions mirrors the provider's published usage plans.
// Refill rates and burst capacities are per seller account; the sales module
// additionally carries a rolling 24h request quota.
var defaultModuleDefinitions = []integration.ModuleDefinition{
	{
		ID:          "sellers",
		DisplayName: "Sellers",
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.016, BurstCapacity: 15},
	},
	{
		ID:          "tokens",
		DisplayName: "Restricted Data Tokens",
		Versions:    []integration.ModuleVersion{{Version: "2021-03-01", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 10},
	},
	{
		ID:          "orders",
		DisplayName: "Orders",
		Versions: []integration.ModuleVersion{
			{Version: "v0", IsDefault: true},
			{Version: "2024-09-01"},
		},
		RateLimit:    integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 30},
		Dependencies: []string{"tokens"},
	},
	{
		ID:           "orderItems",
		DisplayName:  "Order Items",
		Versions:     []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
		RateLimit:    integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 30},
		Dependencies: []string{"tokens"},
	},
	{
		ID:          "inventory",
		DisplayName: "FBA Inventory",
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 2, BurstCapacity: 30},
	},
	{
		ID:          "listings",
		DisplayName: "Listings Items",
		Versions:    []integration.ModuleVersion{{Version: "2021-08-01", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 5, BurstCapacity: 10},
	},
	{
		ID:          "catalogItems",
		DisplayName: "Catalog Items",
		Versions: []integration.ModuleVersion{
			{Version: "2022-04-01", IsDefault: true},
			{Version: "2020-12-01", Deprecated: true},
		},
		RateLimit: integration.RateLimitPolicy{RestoreRatePerSecond: 2, BurstCapacity: 2},
	},
	{
		ID:          "reports",
		DisplayName: "Reports",
		Versions:    []integration.ModuleVersion{{Version: "2021-06-30", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.0222, BurstCapacity: 10},
	},
	{
		ID:          "feeds",
		DisplayName: "Feeds",
		Versions:    []integration.ModuleVersion{{Version: "2021-06-30", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.0083, BurstCapacity: 15},
	},
	{
		ID:           "notifications",
		DisplayName:  "Notifications",
		Versions:     []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:    integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 5},
		Dependencies: []string{"tokens"},
	},
	{
		ID:          "messaging",
		DisplayName: "Messaging",
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 5},
	},
	{
		ID:          "solicitations",
		DisplayName: "Solicitations",
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 5},
	},
	{
		ID:          "productPricing",
		DisplayName: "Product Pricing",
		Versions:    []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 1},
	},
	{
		ID:          "productFees",
		DisplayName: "Product Fees",
		Versions:    []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 2},
	},
	{
		ID:          "shipping",
		DisplayName: "Shipping",
		Versions:    []integration.ModuleVersion{{Version: "v2", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 5, BurstCapacity: 15},
	},
	{
		ID:          "merchantFulfillment",
		DisplayName: "Merchant Fulfillment",
		Versions:    []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 1, BurstCapacity: 10},
	},
	{
		ID:          "fulfillmentInbound",
		DisplayName: "Fulfillment Inbound",
		Versions:    []integration.ModuleVersion{{Version: "2024-03-20", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 2, BurstCapacity: 30},
	},
	{
		ID:          "fulfillmentOutbound",
		DisplayName: "Fulfillment Outbound",
		Versions:    []integration.ModuleVersion{{Version: "2020-07-01", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 2, BurstCapacity: 30},
	},
	{
		ID:          "supplySources",
		DisplayName: "Supply Sources",
		Versions:    []integration.ModuleVersion{{Version: "2020-07-01", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.1, BurstCapacity: 10},
	},
	{
		ID:          "finances",
		DisplayName: "Finances",
		Versions:    []integration.ModuleVersion{{Version: "v0", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 30},
	},
	{
		ID:          "sales",
		DisplayName: "Sales",
		Versions:    []integration.ModuleVersion{{Version: "v1", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 0.5, BurstCapacity: 15, MaximumRequestQuota: 7200},
	},
	{
		ID:          "uploads",
		DisplayName: "Uploads",
		Versions:    []integration.ModuleVersion{{Version: "2020-11-01", IsDefault: true}},
		RateLimit:   integration.RateLimitPolicy{RestoreRatePerSecond: 10, BurstCapacity: 10},
	},
}
