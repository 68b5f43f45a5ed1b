package modules

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// InventorySummary is the stock position of one SKU in the provider's
// fulfillment network.
type InventorySummary struct {
	SellerSKU       string    `json:"sellerSku"`
	FulfillmentSKU  string    `json:"fnSku"`
	ProductID       string    `json:"asin"`
	ProductName     string    `json:"productName"`
	Condition       string    `json:"condition"`
	TotalQuantity   int       `json:"totalQuantity"`
	LastUpdatedTime time.Time `json:"lastUpdatedTime"`
}

// InventoryQuery filters an inventory summary listing.
type InventoryQuery struct {
	MarketplaceIDs []string
	SellerSKUs     []string
	// StartDateTime restricts to stock changed after this instant
	StartDateTime time.Time
	// Details requests per-disposition quantity breakdowns
	Details bool
}

type inventoryPayload struct {
	InventorySummaries []InventorySummary `json:"inventorySummaries"`
}

type inventoryPagination struct {
	NextToken string `json:"nextToken"`
}

type getInventorySummariesResponse struct {
	Payload    inventoryPayload    `json:"payload"`
	Pagination inventoryPagination `json:"pagination"`
}

// InventoryModule is the façade over the fulfillment inventory resource
// group.
type InventoryModule struct {
	baseModule
}

// NewInventoryModule creates the inventory façade.
func NewInventoryModule(deps ModuleDeps, version string) (*InventoryModule, error) {
	base, err := newBaseModule(deps, "inventory", version)
	if err != nil {
		return nil, err
	}
	return &InventoryModule{baseModule: base}, nil
}

// GetInventorySummaries returns one page of inventory summaries.
func (m *InventoryModule) GetInventorySummaries(ctx context.Context, q InventoryQuery, nextToken string) (integration.Page[InventorySummary], error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      "/fba/inventory/" + m.version + "/summaries",
		Operation: "getInventorySummaries",
		Query:     q.values(),
	}
	if nextToken != "" {
		spec = spec.WithQuery("nextToken", nextToken)
	}

	resp, err := marketplace.Request[getInventorySummariesResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return integration.Page[InventorySummary]{}, err
	}
	return integration.Page[InventorySummary]{
		Items:     resp.Data.Payload.InventorySummaries,
		NextToken: resp.Data.Pagination.NextToken,
	}, nil
}

// GetAllInventorySummaries drains every page of summaries. The result may
// be partial when the page ceiling is reached.
func (m *InventoryModule) GetAllInventorySummaries(ctx context.Context, q InventoryQuery) ([]InventorySummary, error) {
	return marketplace.GetAllPages(ctx, m.maxPages(), func(ctx context.Context, token string) (integration.Page[InventorySummary], error) {
		return m.GetInventorySummaries(ctx, q, token)
	})
}

func (q InventoryQuery) values() url.Values {
	v := url.Values{}
	v.Set("granularityType", "Marketplace")
	if len(q.MarketplaceIDs) > 0 {
		v.Set("marketplaceIds", strings.Join(q.MarketplaceIDs, ","))
		v.Set("granularityId", q.MarketplaceIDs[0])
	}
	if len(q.SellerSKUs) > 0 {
		v.Set("sellerSkus", strings.Join(q.SellerSKUs, ","))
	}
	if !q.StartDateTime.IsZero() {
		v.Set("startDateTime", q.StartDateTime.UTC().Format(time.RFC3339))
	}
	if q.Details {
		v.Set("details", "true")
	}
	return v
}

var _ integration.Module = (*InventoryModule)(nil)
