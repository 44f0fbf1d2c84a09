package marketplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Config holds credentials and connection settings for the upstream
// marketplace open-platform API.
type Config struct {
	// AppKey is the application key from the marketplace open platform
	AppKey string
	// AppSecret signs every request
	AppSecret string
	// AccessToken authorizes the shop's data access
	AccessToken string
	// ShopID identifies the shop on the platform
	ShopID string
	// APIBaseURL is the API endpoint (production or sandbox)
	APIBaseURL string
	// IsSandbox indicates a sandbox environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// ProductionAPIURL is the production API endpoint
	ProductionAPIURL = "https://open.marketplace-api.example.com"
	// SandboxAPIURL is the sandbox API endpoint
	SandboxAPIURL = "https://open-sandbox.marketplace-api.example.com"
)

// Errors for marketplace configuration
var (
	ErrConfigMissingAppKey      = errors.New("marketplace: app key is required")
	ErrConfigMissingAppSecret   = errors.New("marketplace: app secret is required")
	ErrConfigMissingAccessToken = errors.New("marketplace: access token is required")
	ErrConfigMissingShopID      = errors.New("marketplace: shop ID is required")
)

// NewConfig creates a production configuration with defaults.
func NewConfig(appKey, appSecret, accessToken, shopID string) *Config {
	return &Config{
		AppKey:         appKey,
		AppSecret:      appSecret,
		AccessToken:    accessToken,
		ShopID:         shopID,
		APIBaseURL:     ProductionAPIURL,
		IsSandbox:      false,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and fills derivable defaults.
func (c *Config) Validate() error {
	if c.AppKey == "" {
		return ErrConfigMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrConfigMissingAppSecret
	}
	if c.AccessToken == "" {
		return ErrConfigMissingAccessToken
	}
	if c.ShopID == "" {
		return ErrConfigMissingShopID
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = SandboxAPIURL
		} else {
			c.APIBaseURL = ProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Sign generates the request signature.
// Sign string: app_secret + method + param_json + timestamp + v + app_secret,
// hashed with HMAC-SHA256 keyed by the app secret.
func (c *Config) Sign(method string, paramJSON string, timestamp string, v string) string {
	var builder strings.Builder
	builder.WriteString(c.AppSecret)
	builder.WriteString(method)
	builder.WriteString(paramJSON)
	builder.WriteString(timestamp)
	builder.WriteString(v)
	builder.WriteString(c.AppSecret)

	h := hmac.New(sha256.New, []byte(c.AppSecret))
	h.Write([]byte(builder.String()))
	return hex.EncodeToString(h.Sum(nil))
}
