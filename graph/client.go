// Package graph is the storefront's read side: a client for the marketplace
// indexer's GraphQL API. The protocol core consumes the typed snapshots this
// package returns and never talks to the indexer itself.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"storefront-cli/auction_house"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultRetries  = 2
	defaultBackoff  = 500 * time.Millisecond
	defaultCacheTTL = 15 * time.Second
)

// Client queries the marketplace graph with bounded retries and a
// short-lived snapshot cache.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]*Snapshot
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds each HTTP request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithRetries sets how many times a failed query is retried.
func WithRetries(retries int) ClientOption {
	return func(c *Client) { c.maxRetries = retries }
}

// WithBackoff sets the base delay between retries. The delay doubles with
// each attempt.
func WithBackoff(backoff time.Duration) ClientOption {
	return func(c *Client) { c.backoff = backoff }
}

// WithCacheTTL sets how long an NFT snapshot is served from cache.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a graph client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultRetries,
		backoff:    defaultBackoff,
		cacheTTL:   defaultCacheTTL,
		cache:      make(map[string]*Snapshot),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Marketplace loads the marketplace configuration for a subdomain.
func (c *Client) Marketplace(ctx context.Context, subdomain string) (*auction_house.Marketplace, error) {
	var data marketplaceData
	if err := c.query(ctx, marketplaceQuery, map[string]interface{}{"subdomain": subdomain}, &data); err != nil {
		return nil, err
	}
	if data.Marketplace == nil {
		return nil, errors.Errorf("no marketplace for subdomain %q", subdomain)
	}
	return data.Marketplace.toMarketplace()
}

// NftSnapshot returns the NFT with its open orders, served from cache while
// fresh.
func (c *Client) NftSnapshot(ctx context.Context, address string) (*Snapshot, error) {
	c.mu.Lock()
	cached, ok := c.cache[address]
	c.mu.Unlock()
	if ok && time.Since(cached.FetchedAt) < c.cacheTTL {
		return cached, nil
	}
	return c.RefetchNftSnapshot(ctx, address)
}

// RefetchNftSnapshot always reads through to the indexer and replaces the
// cached snapshot. Settlement reconciliation uses this path so the refreshed
// ownership and order state can never be masked by the cache.
func (c *Client) RefetchNftSnapshot(ctx context.Context, address string) (*Snapshot, error) {
	var data nftData
	if err := c.query(ctx, nftQuery, map[string]interface{}{"address": address}, &data); err != nil {
		return nil, err
	}
	if data.Nft == nil {
		return nil, errors.Errorf("no nft at address %q", address)
	}
	snapshot, err := data.Nft.toSnapshot()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[address] = snapshot
	c.mu.Unlock()
	return snapshot, nil
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.Wrap(err, "failed to encode query")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}
		lastErr = c.post(ctx, payload, out)
		if lastErr == nil {
			return nil
		}
		if _, terminal := lastErr.(*queryError); terminal {
			// The indexer answered; the same query would fail the same way.
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "graph request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("graph returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return errors.Wrap(err, "failed to decode graph response")
	}
	if len(gqlResp.Errors) > 0 {
		return &queryError{message: gqlResp.Errors[0].Message}
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return errors.Wrap(err, "failed to decode graph data")
	}
	return nil
}

// queryError is an error the indexer itself returned. Retrying cannot help.
type queryError struct {
	message string
}

func (e *queryError) Error() string {
	return fmt.Sprintf("graph query failed: %s", e.message)
}
