package marketplace

import (
	"context"
	"errors"

	"github.com/commerceops/backend/internal/domain/integration"
)

// ErrNoCredentials indicates the provider has no credentials configured.
var ErrNoCredentials = errors.New("marketplace: no credentials configured")

// StaticCredentialProvider serves a fixed set of auth headers for every
// module. It replaces the process-wide singleton credential manager of
// older deployments: the provider is built once at startup and passed
// explicitly into the dispatcher, which keeps tests trivial to fake.
type StaticCredentialProvider struct {
	headers map[string]string
}

// NewStaticCredentialProvider creates a provider serving the given headers.
func NewStaticCredentialProvider(headers map[string]string) *StaticCredentialProvider {
	return &StaticCredentialProvider{headers: headers}
}

// NewBearerCredentialProvider creates a provider serving a bearer token.
func NewBearerCredentialProvider(token string) *StaticCredentialProvider {
	return &StaticCredentialProvider{
		headers: map[string]string{"Authorization": "Bearer " + token},
	}
}

// AuthHeadersFor implements integration.CredentialProvider.
func (p *StaticCredentialProvider) AuthHeadersFor(_ context.Context, _ string) (map[string]string, error) {
	if len(p.headers) == 0 {
		return nil, ErrNoCredentials
	}
	out := make(map[string]string, len(p.headers))
	for k, v := range p.headers {
		out[k] = v
	}
	return out, nil
}

var _ integration.CredentialProvider = (*StaticCredentialProvider)(nil)
