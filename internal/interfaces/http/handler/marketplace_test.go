package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
	"github.com/commerceops/backend/internal/infrastructure/marketplace/modules"
	"github.com/commerceops/backend/internal/interfaces/http/router"
)

func newMarketplaceFixture(t *testing.T) (*gin.Engine, *marketplace.Dispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payload":{}}`))
	}))
	t.Cleanup(upstream.Close)

	catalog, err := marketplace.NewCatalog()
	require.NoError(t, err)

	dispatcher := marketplace.NewDispatcher(
		marketplace.DispatcherConfig{Endpoint: upstream.URL},
		catalog,
		marketplace.NewHTTPTransport(5*time.Second),
		marketplace.NewBearerCredentialProvider("tok"),
	)
	registry := marketplace.NewRegistry(catalog, nil)

	deps := modules.ModuleDeps{Dispatcher: dispatcher, Catalog: catalog}
	tokens, err := modules.NewTokensModule(deps, "")
	require.NoError(t, err)
	orders, err := modules.NewOrdersModule(deps, "")
	require.NoError(t, err)
	require.NoError(t, registry.Register(tokens))
	require.NoError(t, registry.Register(orders))

	engine := gin.New()
	router.NewRouter(engine).
		Register(NewSystemHandler("commerceops-backend")).
		Register(NewMarketplaceHandler(catalog, registry, dispatcher)).
		Setup()

	return engine, dispatcher
}

func doJSON(t *testing.T, engine *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestSystemHandler_Health(t *testing.T) {
	engine, _ := newMarketplaceFixture(t)

	code, body := doJSON(t, engine, "/ops/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
}

func TestSystemHandler_Info(t *testing.T) {
	engine, _ := newMarketplaceFixture(t)

	code, body := doJSON(t, engine, "/ops/system/info")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "commerceops-backend", data["name"])
	assert.NotEmpty(t, data["go_version"])
}

func TestMarketplaceHandler_ListModules(t *testing.T) {
	engine, _ := newMarketplaceFixture(t)

	code, body := doJSON(t, engine, "/ops/marketplace/modules")
	assert.Equal(t, http.StatusOK, code)

	list := body["data"].([]any)
	require.Len(t, list, 2)

	first := list[0].(map[string]any)
	assert.Equal(t, "tokens", first["id"], "registration order preserved")
	assert.Equal(t, "2021-03-01", first["version"])

	second := list[1].(map[string]any)
	assert.Equal(t, "orders", second["id"])
	assert.Equal(t, []any{"tokens"}, second["dependencies"])
	rl := second["rate_limit"].(map[string]any)
	assert.Equal(t, 0.5, rl["restore_rate_per_second"])
	assert.Equal(t, float64(30), rl["burst_capacity"])
	assert.Nil(t, second["bucket"], "no bucket before the first call")
}

func TestMarketplaceHandler_GetModule(t *testing.T) {
	engine, _ := newMarketplaceFixture(t)

	code, body := doJSON(t, engine, "/ops/marketplace/modules/orders")
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "orders", data["id"])
	assert.Equal(t, "Orders", data["display_name"])

	code, body = doJSON(t, engine, "/ops/marketplace/modules/sellers")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	errInfo := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errInfo["code"])
}

func TestMarketplaceHandler_ListLimits(t *testing.T) {
	engine, dispatcher := newMarketplaceFixture(t)

	// Buckets appear after a module's first call
	_, err := dispatcher.Do(context.Background(), "orders", integration.RequestSpec{
		Method: "GET", Path: "/orders/v0/orders", Operation: "getOrders",
	})
	require.NoError(t, err)

	code, body := doJSON(t, engine, "/ops/marketplace/limits")
	assert.Equal(t, http.StatusOK, code)
	list := body["data"].([]any)
	require.Len(t, list, 1)
	bucket := list[0].(map[string]any)
	assert.Equal(t, "orders", bucket["moduleId"])
	assert.Equal(t, float64(30), bucket["capacity"])
}
