package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/ingest"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response

	orderListMethod   = "/order/searchList"
	orderDetailMethod = "/order/orderDetail"
	productListMethod = "/product/listV2"
	apiVersion        = "2"
)

// Client implements ingest.MarketplaceClient against the upstream
// open-platform HTTP API with the signed POST envelope it requires.
type Client struct {
	config     *Config
	httpClient *http.Client

	// tenantConfigs stores per-tenant credentials, falling back to the
	// default config when a tenant has none of its own.
	tenantConfigs map[uuid.UUID]*Config
	mu            sync.RWMutex
}

// NewClient creates a marketplace client with the given default configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		tenantConfigs: make(map[uuid.UUID]*Config),
	}, nil
}

// SetTenantConfig sets the credentials for a specific tenant.
func (c *Client) SetTenantConfig(tenantID uuid.UUID, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantConfigs[tenantID] = config
	return nil
}

func (c *Client) tenantConfig(tenantID uuid.UUID) (*Config, error) {
	c.mu.RLock()
	config, ok := c.tenantConfigs[tenantID]
	c.mu.RUnlock()
	if ok {
		return config, nil
	}
	if c.config != nil {
		return c.config, nil
	}
	return nil, ingest.ErrMarketplaceNotConfigured
}

// PullOrders pulls one page of orders updated within the time range.
func (c *Client) PullOrders(ctx context.Context, req *ingest.OrderPullRequest) (*ingest.Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	config, err := c.tenantConfig(req.TenantID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"update_time_start": req.StartTime.Unix(),
		"update_time_end":   req.EndTime.Unix(),
		"page":              req.PageNo - 1, // upstream pages are 0-indexed
		"size":              req.PageSize,
		"order_by":          "update_time",
		"is_desc":           "0",
	}

	return c.pullPage(ctx, config, orderListMethod, params)
}

// PullProducts pulls one page of the shop's product listing.
func (c *Client) PullProducts(ctx context.Context, req *ingest.ProductPullRequest) (*ingest.Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	config, err := c.tenantConfig(req.TenantID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"page": req.PageNo - 1,
		"size": req.PageSize,
	}

	return c.pullPage(ctx, config, productListMethod, params)
}

func (c *Client) pullPage(ctx context.Context, config *Config, method string, params map[string]any) (*ingest.Page, error) {
	respBody, err := c.doRequest(ctx, config, method, params)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("marketplace: failed to parse response: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %d - %s", ingest.ErrMarketplaceRequestFailed, resp.ErrNo, resp.Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: empty data", ingest.ErrMarketplaceRequestFailed)
	}

	return &ingest.Page{
		Total: resp.Data.Total,
		Items: resp.Data.List,
	}, nil
}

// FetchPackageID fetches the parent-order detail and extracts the package id
// from its logistics info. A nil result with nil error means the order has no
// package yet, which is a valid outcome, not a failure.
func (c *Client) FetchPackageID(ctx context.Context, tenantID uuid.UUID, parentGroupID string) (*string, error) {
	if parentGroupID == "" {
		return nil, ingest.ErrInvalidPullRequest
	}

	config, err := c.tenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"shop_order_id": parentGroupID,
	}

	respBody, err := c.doRequest(ctx, config, orderDetailMethod, params)
	if err != nil {
		return nil, err
	}

	var resp orderDetailResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("marketplace: failed to parse response: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %d - %s", ingest.ErrMarketplaceRequestFailed, resp.ErrNo, resp.Message)
	}
	if resp.Data == nil || resp.Data.ShopOrderDetail == nil {
		return nil, fmt.Errorf("%w: empty order detail", ingest.ErrMarketplaceRequestFailed)
	}

	for _, info := range resp.Data.ShopOrderDetail.LogisticsInfo {
		if info.PackageID != "" {
			packageID := info.PackageID
			return &packageID, nil
		}
	}
	return nil, nil
}

// doRequest performs one signed POST to the platform API.
func (c *Client) doRequest(ctx context.Context, config *Config, method string, params map[string]any) ([]byte, error) {
	paramJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to marshal params: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sign := config.Sign(method, string(paramJSON), timestamp, apiVersion)

	requestBody := map[string]any{
		"app_key":      config.AppKey,
		"access_token": config.AccessToken,
		"method":       method,
		"param_json":   string(paramJSON),
		"timestamp":    timestamp,
		"v":            apiVersion,
		"sign":         sign,
		"sign_method":  "hmac-sha256",
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s", config.APIBaseURL, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrMarketplaceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ingest.ErrMarketplaceRequestFailed, resp.StatusCode)
	}

	return body, nil
}

var _ ingest.MarketplaceClient = (*Client)(nil)
