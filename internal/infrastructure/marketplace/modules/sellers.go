package modules

import (
	"context"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// MarketplaceParticipation describes the seller's standing in one
// marketplace.
type MarketplaceParticipation struct {
	Marketplace struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		CountryCode string `json:"countryCode"`
		Currency    string `json:"defaultCurrencyCode"`
	} `json:"marketplace"`
	Participation struct {
		IsParticipating bool `json:"isParticipating"`
		Suspended       bool `json:"hasSuspendedListings"`
	} `json:"participation"`
}

type getParticipationsResponse struct {
	Payload []MarketplaceParticipation `json:"payload"`
}

// SellersModule is the façade over the sellers resource group.
type SellersModule struct {
	baseModule
}

// NewSellersModule creates the sellers façade.
func NewSellersModule(deps ModuleDeps, version string) (*SellersModule, error) {
	base, err := newBaseModule(deps, "sellers", version)
	if err != nil {
		return nil, err
	}
	return &SellersModule{baseModule: base}, nil
}

// GetMarketplaceParticipations lists the marketplaces the seller account
// participates in.
func (m *SellersModule) GetMarketplaceParticipations(ctx context.Context) ([]MarketplaceParticipation, error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      "/sellers/" + m.version + "/marketplaceParticipations",
		Operation: "getMarketplaceParticipations",
	}
	resp, err := marketplace.Request[getParticipationsResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	return resp.Data.Payload, nil
}

var _ integration.Module = (*SellersModule)(nil)
