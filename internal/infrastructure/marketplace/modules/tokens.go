package modules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// RestrictedResource names one resource a restricted data token should
// unlock.
type RestrictedResource struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	// DataElements narrows the PII elements (e.g. "buyerInfo")
	DataElements []string `json:"dataElements,omitempty"`
}

// RestrictedDataToken is a short-lived token authorizing access to
// restricted resources.
type RestrictedDataToken struct {
	Token     string `json:"restrictedDataToken"`
	ExpiresIn int    `json:"expiresIn"`
}

// TokensModule is the façade over the restricted data token resource group.
// Modules that read buyer PII depend on it.
type TokensModule struct {
	baseModule
}

// NewTokensModule creates the tokens façade.
func NewTokensModule(deps ModuleDeps, version string) (*TokensModule, error) {
	base, err := newBaseModule(deps, "tokens", version)
	if err != nil {
		return nil, err
	}
	return &TokensModule{baseModule: base}, nil
}

// CreateRestrictedDataToken requests a token covering the given resources.
func (m *TokensModule) CreateRestrictedDataToken(ctx context.Context, resources []RestrictedResource) (*RestrictedDataToken, error) {
	body, err := json.Marshal(map[string]any{
		"restrictedResources": resources,
	})
	if err != nil {
		return nil, fmt.Errorf("modules: failed to encode token request: %w", err)
	}

	spec := integration.RequestSpec{
		Method:    "POST",
		Path:      "/tokens/" + m.version + "/restrictedDataToken",
		Operation: "createRestrictedDataToken",
		Body:      body,
	}
	resp, err := marketplace.Request[RestrictedDataToken](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	token := resp.Data
	return &token, nil
}

var _ integration.Module = (*TokensModule)(nil)
