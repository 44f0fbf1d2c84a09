package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/backend/internal/domain/ingest"
)

func testConfig(baseURL string) *Config {
	return &Config{
		AppKey:      "test-key",
		AppSecret:   "test-secret",
		AccessToken: "test-token",
		ShopID:      "shop-1",
		APIBaseURL:  baseURL,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)
	return client, server
}

func orderReq(tenantID uuid.UUID) *ingest.OrderPullRequest {
	return &ingest.OrderPullRequest{
		TenantID:  tenantID,
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now(),
		PageNo:    1,
		PageSize:  50,
	}
}

func TestClient_PullOrders(t *testing.T) {
	tenantID := uuid.New()

	t.Run("parses the list envelope", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, orderListMethod, r.URL.Path)
			w.Write([]byte(`{"err_no":0,"message":"success","data":{"total":2,"list":[{"orderItemId":"A"},{"orderItemId":"B"}]}}`))
		})

		page, err := client.PullOrders(context.Background(), orderReq(tenantID))
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Len(t, page.Items, 2)
	})

	t.Run("sends the signed envelope with zero-indexed page", func(t *testing.T) {
		var body map[string]any
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Write([]byte(`{"err_no":0,"data":{"total":0,"list":[]}}`))
		})

		_, err := client.PullOrders(context.Background(), orderReq(tenantID))
		require.NoError(t, err)

		assert.Equal(t, "test-key", body["app_key"])
		assert.Equal(t, "test-token", body["access_token"])
		assert.Equal(t, orderListMethod, body["method"])
		assert.Equal(t, "hmac-sha256", body["sign_method"])
		assert.NotEmpty(t, body["sign"])
		assert.NotEmpty(t, body["timestamp"])

		var params map[string]any
		require.NoError(t, json.Unmarshal([]byte(body["param_json"].(string)), &params))
		assert.Equal(t, float64(0), params["page"])
		assert.Equal(t, float64(50), params["size"])

		cfg := testConfig("")
		expected := cfg.Sign(orderListMethod, body["param_json"].(string), body["timestamp"].(string), apiVersion)
		assert.Equal(t, expected, body["sign"])
	})

	t.Run("error envelope maps to request failed", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"err_no":10001,"message":"invalid token"}`))
		})

		_, err := client.PullOrders(context.Background(), orderReq(tenantID))
		assert.ErrorIs(t, err, ingest.ErrMarketplaceRequestFailed)
	})

	t.Run("http error status maps to request failed", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.PullOrders(context.Background(), orderReq(tenantID))
		assert.ErrorIs(t, err, ingest.ErrMarketplaceRequestFailed)
	})

	t.Run("unreachable upstream maps to unavailable", func(t *testing.T) {
		client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := client.PullOrders(context.Background(), orderReq(tenantID))
		assert.ErrorIs(t, err, ingest.ErrMarketplaceUnavailable)
	})

	t.Run("rejects invalid pull request", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := client.PullOrders(context.Background(), &ingest.OrderPullRequest{})
		assert.ErrorIs(t, err, ingest.ErrInvalidPullRequest)
	})
}

func TestClient_PullProducts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, productListMethod, r.URL.Path)
		w.Write([]byte(`{"err_no":0,"data":{"total":1,"list":[{"skuId":"S1"}]}}`))
	})

	page, err := client.PullProducts(context.Background(), &ingest.ProductPullRequest{
		TenantID: uuid.New(),
		PageNo:   1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Len(t, page.Items, 1)
}

func TestClient_FetchPackageID(t *testing.T) {
	tenantID := uuid.New()

	t.Run("extracts the first package id from logistics", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, orderDetailMethod, r.URL.Path)
			w.Write([]byte(`{"err_no":0,"data":{"shop_order_detail":{"order_id":"P1","logistics_info":[{"package_id":"","tracking_no":"T0"},{"package_id":"PKG-1","tracking_no":"T1"}]}}}`))
		})

		pkg, err := client.FetchPackageID(context.Background(), tenantID, "P1")
		require.NoError(t, err)
		require.NotNil(t, pkg)
		assert.Equal(t, "PKG-1", *pkg)
	})

	t.Run("no logistics yet returns nil without error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"err_no":0,"data":{"shop_order_detail":{"order_id":"P1","logistics_info":[]}}}`))
		})

		pkg, err := client.FetchPackageID(context.Background(), tenantID, "P1")
		require.NoError(t, err)
		assert.Nil(t, pkg)
	})

	t.Run("empty group id is invalid", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := client.FetchPackageID(context.Background(), tenantID, "")
		assert.ErrorIs(t, err, ingest.ErrInvalidPullRequest)
	})
}

func TestClient_TenantConfig(t *testing.T) {
	t.Run("tenant credentials override the default", func(t *testing.T) {
		var gotKey string
		client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			gotKey, _ = body["app_key"].(string)
			w.Write([]byte(`{"err_no":0,"data":{"total":0,"list":[]}}`))
		})

		tenantID := uuid.New()
		tenantCfg := testConfig(server.URL)
		tenantCfg.AppKey = "tenant-key"
		require.NoError(t, client.SetTenantConfig(tenantID, tenantCfg))

		_, err := client.PullOrders(context.Background(), orderReq(tenantID))
		require.NoError(t, err)
		assert.Equal(t, "tenant-key", gotKey)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("fills default base url and timeout", func(t *testing.T) {
		cfg := &Config{AppKey: "k", AppSecret: "s", AccessToken: "t", ShopID: "shop"}
		require.NoError(t, cfg.Validate())
		assert.NotEmpty(t, cfg.APIBaseURL)
		assert.Positive(t, cfg.TimeoutSeconds)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		err := (&Config{AppSecret: "s", AccessToken: "t"}).Validate()
		assert.Error(t, err)
	})
}
