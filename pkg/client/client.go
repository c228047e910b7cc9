// Package client provides the core NCM HTTP client: authenticated dispatch
// with bounded retry and pacing, cursor pagination, and oversized-filter
// chunking across the legacy v2 and current v3 API surfaces.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netcloudops/ncm-client/pkg/auth"
	"github.com/netcloudops/ncm-client/pkg/cache"
	"github.com/netcloudops/ncm-client/pkg/logging"
	"github.com/netcloudops/ncm-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Upstream base URLs, overridable via Config or environment.
const (
	DefaultBaseURLV2 = "https://www.cradlepointecm.com/api/v2"
	DefaultBaseURLV3 = "https://api.cradlepointecm.com/api/v3"
)

// Environment variables honored by DefaultConfig.
const (
	EnvBaseURLV2 = "CP_BASE_URL"
	EnvBaseURLV3 = "CP_BASE_URL_V3"
)

// Config holds the client configuration.
type Config struct {
	// Credentials carry the v2 key set and/or the v3 bearer token. At
	// least one complete mode must be present.
	Credentials auth.Credentials

	// BaseURLV2 and BaseURLV3 locate the two API surfaces.
	BaseURLV2 string
	BaseURLV3 string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MinInterval spaces consecutive requests (rate-limit avoidance).
	MinInterval time.Duration

	// Retry configures the bounded backoff policy for retryable failures.
	Retry RetryConfig

	// ChunkConcurrency > 1 walks independent filter chunks in parallel.
	ChunkConcurrency int

	// Redis is optional. When set, pacing state is shared across
	// processes holding the same credentials, and list results may be
	// cached.
	Redis *redis.Client

	// CacheTTL enables list-result caching when > 0 and Redis is set.
	// Only complete, unbounded list walks are cached.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration with the given credentials and
// conservative defaults. Base URLs honor the CP_BASE_URL / CP_BASE_URL_V3
// environment overrides.
func DefaultConfig(creds auth.Credentials) Config {
	return Config{
		Credentials:      creds,
		BaseURLV2:        getEnv(EnvBaseURLV2, DefaultBaseURLV2),
		BaseURLV3:        getEnv(EnvBaseURLV3, DefaultBaseURLV3),
		Timeout:          30 * time.Second,
		MinInterval:      ratelimit.DefaultMinInterval,
		Retry:            DefaultRetryConfig(),
		ChunkConcurrency: 1,
	}
}

// credState bundles everything derived from one credential set: the keys
// themselves, the routed device-inventory endpoint, and the pacer namespaced
// by the credential fingerprint. Dispatch snapshots it once per logical
// request, so replacing credentials never affects an in-flight call.
type credState struct {
	creds     auth.Credentials
	inventory Endpoint
	pacer     *ratelimit.Pacer
}

// Client is the NCM API client. One instance serves both API surfaces;
// credentials are the only state shared across calls and may be replaced
// atomically via SetCredentials.
type Client struct {
	httpClient *http.Client
	state      atomic.Pointer[credState]
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// New creates an NCM client. Credential completeness is validated up front;
// per-endpoint availability of a mode is still checked at dispatch time.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("validate credentials: %w", err)
	}
	if cfg.BaseURLV2 == "" {
		cfg.BaseURLV2 = getEnv(EnvBaseURLV2, DefaultBaseURLV2)
	}
	if cfg.BaseURLV3 == "" {
		cfg.BaseURLV3 = getEnv(EnvBaseURLV3, DefaultBaseURLV3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = 1
	}
	if cfg.CacheTTL > 0 && cfg.Redis == nil {
		return nil, fmt.Errorf("cache_ttl requires a redis client")
	}
	cfg.Retry = cfg.Retry.sanitize()

	logger := logging.NewLogger("ncm-client")

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}
	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		c.cache = cache.NewManager(cfg.Redis)
	}

	c.state.Store(c.buildState(cfg.Credentials))

	mode := string(V2)
	if cfg.Credentials.HasV3() {
		mode = string(V3)
	}
	logger.Info().
		Bool("v2_keys", cfg.Credentials.HasV2()).
		Bool("v3_token", cfg.Credentials.HasV3()).
		Str("preferred_surface", mode).
		Msg("NCM client initialized")

	return c, nil
}

// buildState derives the routed inventory endpoint and a freshly namespaced
// pacer from a credential set. Routing is decided here, once, not per call:
// a configured token prefers the v3 surface.
func (c *Client) buildState(creds auth.Credentials) *credState {
	inventory := EndpointRouters
	if creds.HasV3() {
		inventory = EndpointAssetEndpoints
	}
	return &credState{
		creds:     creds,
		inventory: inventory,
		pacer: ratelimit.NewPacer(
			c.config.MinInterval,
			c.config.Redis,
			creds.Fingerprint(),
			logging.NewLogger("ncm-pacer"),
		),
	}
}

// SetCredentials replaces the credential set wholesale (key rotation) and
// recomputes the routed surface. In-flight requests keep the headers they
// already selected.
func (c *Client) SetCredentials(creds auth.Credentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	c.state.Store(c.buildState(creds))
	c.logger.Info().
		Bool("v2_keys", creds.HasV2()).
		Bool("v3_token", creds.HasV3()).
		Msg("Credentials replaced")
	return nil
}

// Credentials returns the currently configured credential set.
func (c *Client) Credentials() auth.Credentials {
	return c.state.Load().creds
}

// InventoryEndpoint returns the device-inventory endpoint selected by
// version routing: asset_endpoints (v3) when a token is configured, routers
// (v2) otherwise.
func (c *Client) InventoryEndpoint() Endpoint {
	return c.state.Load().inventory
}

// List fetches all records of ep matching q, walking pages until exhaustion
// or q.Limit. Oversized membership filters are chunked transparently; note
// that chunked walks ignore q.Limit and always run unbounded. A non-nil
// record slice together with a *PartialError means the walk terminated
// early; the records are everything gathered before the failure.
func (c *Client) List(ctx context.Context, ep Endpoint, q *Query) ([]Record, error) {
	if q == nil {
		q = NewQuery()
	}

	if idx := q.oversizedFilter(MaxFilterValues); idx >= 0 {
		return c.chunkedList(ctx, ep, q, idx)
	}

	cacheable := c.cache != nil && q.Limit <= 0
	var key cache.Key
	if cacheable {
		key = cache.Key{
			Version:  string(ep.Version),
			Endpoint: ep.Name,
			Params:   q.encode(ep),
		}
		if records, ok := c.cachedList(ctx, key); ok {
			return records, nil
		}
	}

	records, err := c.paginate(ctx, ep, q)
	if err != nil {
		return records, err
	}

	if cacheable {
		c.storeList(ctx, key, records)
	}
	return records, nil
}

// Get fetches a single resource by id. A 404 surfaces as ErrorClassNotFound.
func (c *Client) Get(ctx context.Context, ep Endpoint, id string) (Record, error) {
	item := ep.Item(id)
	body, err := c.dispatch(ctx, http.MethodGet, item, c.resourceURL(item), nil)
	if err != nil {
		return nil, err
	}
	return decodeResource(item, body)
}

// Create posts a new resource to the collection. The body is marshaled
// as-is; v3 wrappers supply the JSON:API envelope themselves.
func (c *Client) Create(ctx context.Context, ep Endpoint, body any) (Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", ep.Name, err)
	}
	respBody, err := c.dispatch(ctx, http.MethodPost, ep, c.resourceURL(ep), payload)
	if err != nil {
		return nil, err
	}
	return decodeResource(ep, respBody)
}

// Update modifies one resource via PUT.
func (c *Client) Update(ctx context.Context, ep Endpoint, id string, body any) (Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", ep.Name, err)
	}
	item := ep.Item(id)
	respBody, err := c.dispatch(ctx, http.MethodPut, item, c.resourceURL(item), payload)
	if err != nil {
		return nil, err
	}
	return decodeResource(item, respBody)
}

// Patch modifies one resource via PATCH (partial update).
func (c *Client) Patch(ctx context.Context, ep Endpoint, id string, body any) (Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", ep.Name, err)
	}
	item := ep.Item(id)
	respBody, err := c.dispatch(ctx, http.MethodPatch, item, c.resourceURL(item), payload)
	if err != nil {
		return nil, err
	}
	return decodeResource(item, respBody)
}

// Delete removes one resource.
func (c *Client) Delete(ctx context.Context, ep Endpoint, id string) error {
	item := ep.Item(id)
	_, err := c.dispatch(ctx, http.MethodDelete, item, c.resourceURL(item), nil)
	return err
}

// cachedList consults the list-result cache; failures degrade to a miss.
func (c *Client) cachedList(ctx context.Context, key cache.Key) ([]Record, bool) {
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
		return nil, false
	}

	var records []Record
	if err := json.Unmarshal(entry.Data, &records); err != nil {
		c.logger.Warn().Err(err).Msg("Corrupt cache entry, deleting")
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	c.logger.Debug().
		Str("key", key.String()).
		Int("records", len(records)).
		Msg("List served from cache")
	return records, true
}

// storeList caches a complete list result, best effort.
func (c *Client) storeList(ctx context.Context, key cache.Key, records []Record) {
	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to marshal records for cache")
		return
	}
	if err := c.cache.Set(ctx, key, cache.NewEntry(data, c.config.CacheTTL)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache list result")
	}
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
	defaultErr    error
)

// Default returns a process-wide client built from the environment. It is a
// convenience for scripts; anything testable should construct its own Client
// via New.
func Default() (*Client, error) {
	defaultOnce.Do(func() {
		defaultClient, defaultErr = New(DefaultConfig(auth.FromEnv()))
	})
	return defaultClient, defaultErr
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
