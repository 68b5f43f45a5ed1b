package modules

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// ---------------------------------------------------------------------------
// Orders Value Objects
// ---------------------------------------------------------------------------

// Money is a provider monetary amount.
type Money struct {
	CurrencyCode string          `json:"CurrencyCode"`
	Amount       decimal.Decimal `json:"Amount"`
}

// Order is one marketplace order header.
type Order struct {
	OrderID                string    `json:"OrderId"`
	PurchaseDate           time.Time `json:"PurchaseDate"`
	LastUpdateDate         time.Time `json:"LastUpdateDate"`
	OrderStatus            string    `json:"OrderStatus"`
	FulfillmentChannel     string    `json:"FulfillmentChannel"`
	SalesChannel           string    `json:"SalesChannel"`
	OrderTotal             Money     `json:"OrderTotal"`
	NumberOfItemsShipped   int       `json:"NumberOfItemsShipped"`
	NumberOfItemsUnshipped int       `json:"NumberOfItemsUnshipped"`
	MarketplaceID          string    `json:"MarketplaceId"`
	ShipmentServiceLevel   string    `json:"ShipmentServiceLevelCategory"`
	IsPremiumOrder         bool      `json:"IsPremiumOrder"`
	IsPrime                bool      `json:"IsPrime"`
}

// OrderItem is one line item of an order.
type OrderItem struct {
	OrderItemID       string `json:"OrderItemId"`
	SellerSKU         string `json:"SellerSKU"`
	ProductID         string `json:"ASIN"`
	Title             string `json:"Title"`
	QuantityOrdered   int    `json:"QuantityOrdered"`
	QuantityShipped   int    `json:"QuantityShipped"`
	ItemPrice         Money  `json:"ItemPrice"`
	ItemTax           Money  `json:"ItemTax"`
	PromotionDiscount Money  `json:"PromotionDiscount"`
}

// OrderQuery filters an order listing.
type OrderQuery struct {
	// MarketplaceIDs is required by the provider
	MarketplaceIDs []string
	// CreatedAfter bounds the listing; required unless LastUpdatedAfter set
	CreatedAfter time.Time
	// CreatedBefore optionally bounds the listing
	CreatedBefore time.Time
	// Statuses optionally filters by order status
	Statuses []string
	// MaxResultsPerPage caps the page size (provider default 100)
	MaxResultsPerPage int
}

// ---------------------------------------------------------------------------
// Response Envelopes
// ---------------------------------------------------------------------------

type ordersPayload struct {
	Orders    []Order `json:"Orders"`
	NextToken string  `json:"NextToken"`
}

type getOrdersResponse struct {
	Payload ordersPayload `json:"payload"`
}

type getOrderResponse struct {
	Payload Order `json:"payload"`
}

type orderItemsPayload struct {
	OrderItems []OrderItem `json:"OrderItems"`
	OrderID    string      `json:"AmazonOrderId"`
	NextToken  string      `json:"NextToken"`
}

type getOrderItemsResponse struct {
	Payload orderItemsPayload `json:"payload"`
}

// ---------------------------------------------------------------------------
// Orders Module
// ---------------------------------------------------------------------------

// OrdersModule is the façade over the orders resource group.
type OrdersModule struct {
	baseModule
}

// NewOrdersModule creates the orders façade, resolving version via the
// catalog when empty.
func NewOrdersModule(deps ModuleDeps, version string) (*OrdersModule, error) {
	base, err := newBaseModule(deps, "orders", version)
	if err != nil {
		return nil, err
	}
	return &OrdersModule{baseModule: base}, nil
}

// GetOrders returns one page of orders matching the query.
func (m *OrdersModule) GetOrders(ctx context.Context, q OrderQuery, nextToken string) (integration.Page[Order], error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      m.path("/orders"),
		Operation: "getOrders",
		Query:     q.values(),
	}
	if nextToken != "" {
		spec = spec.WithQuery("NextToken", nextToken)
	}

	resp, err := marketplace.Request[getOrdersResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return integration.Page[Order]{}, err
	}
	return integration.Page[Order]{
		Items:     resp.Data.Payload.Orders,
		NextToken: resp.Data.Payload.NextToken,
	}, nil
}

// GetAllOrders drains every page of orders matching the query. The result
// may be partial when the page ceiling is reached.
func (m *OrdersModule) GetAllOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	return marketplace.GetAllPages(ctx, m.maxPages(), func(ctx context.Context, token string) (integration.Page[Order], error) {
		return m.GetOrders(ctx, q, token)
	})
}

// GetOrder returns a single order by id.
func (m *OrdersModule) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      m.path("/orders/" + url.PathEscape(orderID)),
		Operation: "getOrder",
	}
	resp, err := marketplace.Request[getOrderResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	order := resp.Data.Payload
	return &order, nil
}

// GetOrderItems drains every line item of an order. The result may be
// partial when the page ceiling is reached.
func (m *OrdersModule) GetOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	return marketplace.GetAllPages(ctx, m.maxPages(), func(ctx context.Context, token string) (integration.Page[OrderItem], error) {
		spec := integration.RequestSpec{
			Method:    "GET",
			Path:      m.path("/orders/" + url.PathEscape(orderID) + "/orderItems"),
			Operation: "getOrderItems",
		}
		if token != "" {
			spec = spec.WithQuery("NextToken", token)
		}
		resp, err := marketplace.Request[getOrderItemsResponse](ctx, m.deps.Dispatcher, m.id, spec)
		if err != nil {
			return integration.Page[OrderItem]{}, err
		}
		return integration.Page[OrderItem]{
			Items:     resp.Data.Payload.OrderItems,
			NextToken: resp.Data.Payload.NextToken,
		}, nil
	})
}

// path prefixes a resource path with the bound version.
func (m *OrdersModule) path(suffix string) string {
	return "/orders/" + m.version + suffix
}

// values encodes the query filters into provider parameters.
func (q OrderQuery) values() url.Values {
	v := url.Values{}
	if len(q.MarketplaceIDs) > 0 {
		v.Set("MarketplaceIds", strings.Join(q.MarketplaceIDs, ","))
	}
	if !q.CreatedAfter.IsZero() {
		v.Set("CreatedAfter", q.CreatedAfter.UTC().Format(time.RFC3339))
	}
	if !q.CreatedBefore.IsZero() {
		v.Set("CreatedBefore", q.CreatedBefore.UTC().Format(time.RFC3339))
	}
	if len(q.Statuses) > 0 {
		v.Set("OrderStatuses", strings.Join(q.Statuses, ","))
	}
	if q.MaxResultsPerPage > 0 {
		v.Set("MaxResultsPerPage", strconv.Itoa(q.MaxResultsPerPage))
	}
	return v
}

var _ integration.Module = (*OrdersModule)(nil)
