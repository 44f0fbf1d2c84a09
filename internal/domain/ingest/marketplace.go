package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors returned by marketplace clients.
var (
	// ErrMarketplaceNotConfigured means no credentials exist for the owner.
	ErrMarketplaceNotConfigured = errors.New("marketplace not configured")
	// ErrMarketplaceUnavailable means the upstream could not be reached.
	ErrMarketplaceUnavailable = errors.New("marketplace unavailable")
	// ErrMarketplaceRequestFailed means the upstream rejected the request.
	ErrMarketplaceRequestFailed = errors.New("marketplace request failed")
	// ErrInvalidPullRequest means the pull request parameters are invalid.
	ErrInvalidPullRequest = errors.New("invalid pull request")
)

// OrderPullRequest describes one page of an upstream order listing.
type OrderPullRequest struct {
	TenantID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	PageNo    int
	PageSize  int
}

// Validate checks the request parameters.
func (r *OrderPullRequest) Validate() error {
	if r.TenantID == uuid.Nil {
		return ErrInvalidPullRequest
	}
	if r.PageNo < 1 || r.PageSize < 1 {
		return ErrInvalidPullRequest
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrInvalidPullRequest
	}
	return nil
}

// ProductPullRequest describes one page of an upstream product listing.
type ProductPullRequest struct {
	TenantID uuid.UUID
	PageNo   int
	PageSize int
}

// Validate checks the request parameters.
func (r *ProductPullRequest) Validate() error {
	if r.TenantID == uuid.Nil {
		return ErrInvalidPullRequest
	}
	if r.PageNo < 1 || r.PageSize < 1 {
		return ErrInvalidPullRequest
	}
	return nil
}

// Page is one page of semi-structured upstream items. Items are kept as raw
// JSON; the field mapper owns interpreting their shape.
type Page struct {
	Total int64
	Items []json.RawMessage
}

// HasMore reports whether more pages follow the given one.
func (p *Page) HasMore(pageNo, pageSize int) bool {
	return int64(pageNo*pageSize) < p.Total
}

// MarketplaceClient is the upstream API surface the core consumes: paginated
// order and product listings plus the per-parent-group detail endpoint that
// carries the package id.
type MarketplaceClient interface {
	PullOrders(ctx context.Context, req *OrderPullRequest) (*Page, error)
	PullProducts(ctx context.Context, req *ProductPullRequest) (*Page, error)
	// FetchPackageID returns the package id for a parent order group.
	// A nil result with nil error is valid: some orders never receive one.
	FetchPackageID(ctx context.Context, tenantID uuid.UUID, parentGroupID string) (*string, error)
}
