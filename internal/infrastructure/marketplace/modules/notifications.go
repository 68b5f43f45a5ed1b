package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// Subscription is one notification subscription.
type Subscription struct {
	SubscriptionID string `json:"subscriptionId"`
	PayloadVersion string `json:"payloadVersion"`
	DestinationID  string `json:"destinationId"`
}

// Destination is one notification delivery target.
type Destination struct {
	DestinationID string `json:"destinationId"`
	Name          string `json:"name"`
}

type getSubscriptionResponse struct {
	Payload Subscription `json:"payload"`
}

type getDestinationsResponse struct {
	Payload []Destination `json:"payload"`
}

// NotificationsModule is the façade over the notifications resource group.
type NotificationsModule struct {
	baseModule
}

// NewNotificationsModule creates the notifications façade.
func NewNotificationsModule(deps ModuleDeps, version string) (*NotificationsModule, error) {
	base, err := newBaseModule(deps, "notifications", version)
	if err != nil {
		return nil, err
	}
	return &NotificationsModule{baseModule: base}, nil
}

// GetSubscription returns the subscription for a notification type.
func (m *NotificationsModule) GetSubscription(ctx context.Context, notificationType string) (*Subscription, error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      m.path(notificationType),
		Operation: "getSubscription",
	}
	resp, err := marketplace.Request[getSubscriptionResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	sub := resp.Data.Payload
	return &sub, nil
}

// CreateSubscription subscribes a destination to a notification type.
func (m *NotificationsModule) CreateSubscription(ctx context.Context, notificationType, payloadVersion, destinationID string) (*Subscription, error) {
	body, err := json.Marshal(map[string]string{
		"payloadVersion": payloadVersion,
		"destinationId":  destinationID,
	})
	if err != nil {
		return nil, fmt.Errorf("modules: failed to encode subscription: %w", err)
	}

	spec := integration.RequestSpec{
		Method:    "POST",
		Path:      m.path(notificationType),
		Operation: "createSubscription",
		Body:      body,
	}
	resp, err := marketplace.Request[getSubscriptionResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	sub := resp.Data.Payload
	return &sub, nil
}

// DeleteSubscription removes a subscription by id.
func (m *NotificationsModule) DeleteSubscription(ctx context.Context, notificationType, subscriptionID string) error {
	spec := integration.RequestSpec{
		Method:    "DELETE",
		Path:      m.path(notificationType) + "/" + url.PathEscape(subscriptionID),
		Operation: "deleteSubscription",
	}
	_, err := m.deps.Dispatcher.Do(ctx, m.id, spec)
	return err
}

// GetDestinations lists every registered delivery destination.
func (m *NotificationsModule) GetDestinations(ctx context.Context) ([]Destination, error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      "/notifications/" + m.version + "/destinations",
		Operation: "getDestinations",
	}
	resp, err := marketplace.Request[getDestinationsResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	return resp.Data.Payload, nil
}

func (m *NotificationsModule) path(notificationType string) string {
	return "/notifications/" + m.version + "/subscriptions/" + url.PathEscape(notificationType)
}

var _ integration.Module = (*NotificationsModule)(nil)
