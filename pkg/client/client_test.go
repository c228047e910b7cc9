package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/netcloudops/ncm-client/internal/testutil"
	"github.com/netcloudops/ncm-client/pkg/auth"
)

func testCredentials() auth.Credentials {
	return auth.Credentials{
		APIID:  "cp-id",
		APIKey: "cp-key",
		ECMID:  "ecm-id",
		ECMKey: "ecm-key",
		Token:  "v3-token",
	}
}

// newTestClient builds a client pointed at a fresh mock server, with fast
// retry and pacing constants so tests never sleep for real.
func newTestClient(t *testing.T, creds auth.Credentials) (*Client, *testutil.MockNCM) {
	t.Helper()

	mock := testutil.NewMockNCM()
	t.Cleanup(mock.Close)

	cfg := Config{
		Credentials: creds,
		BaseURLV2:   mock.URL(),
		BaseURLV3:   mock.URL() + "/v3",
		Timeout:     5 * time.Second,
		MinInterval: time.Millisecond,
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    5 * time.Millisecond,
			MaxBackoff:        20 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, mock
}

func routerFixtures(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"id":   fmt.Sprintf("%d", i),
			"name": fmt.Sprintf("router-%d", i),
		}
	}
	return records
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, auth.ErrNoCredentials) {
		t.Errorf("New() error = %v, want ErrNoCredentials", err)
	}
}

func TestNew_CacheRequiresRedis(t *testing.T) {
	cfg := DefaultConfig(testCredentials())
	cfg.CacheTTL = time.Minute

	if _, err := New(cfg); err == nil {
		t.Error("New() with CacheTTL and no Redis should fail")
	}
}

func TestNew_PartialLegacyCredentialsRejected(t *testing.T) {
	// Two of four legacy keys is treated as no credentials at all.
	_, err := New(DefaultConfig(auth.Credentials{APIID: "a", APIKey: "b"}))
	if !errors.Is(err, auth.ErrNoCredentials) {
		t.Errorf("New() error = %v, want ErrNoCredentials", err)
	}
}

func TestCredentialModeSelection(t *testing.T) {
	// Both modes configured: a v2 endpoint must use the four legacy
	// headers even though a token is present, and a v3 endpoint must use
	// the bearer token.
	c, mock := newTestClient(t, testCredentials())
	ctx := context.Background()

	mock.ServeV2Collection("/routers/", routerFixtures(2))
	mock.ServeV3Collection("/v3/users", []map[string]any{{"id": "u1"}})

	if _, err := c.GetRouters(ctx, nil); err != nil {
		t.Fatalf("GetRouters() error = %v", err)
	}
	headers := mock.LastHeaderFor("/routers/")
	if got := headers.Get("X-ECM-API-ID"); got != "ecm-id" {
		t.Errorf("X-ECM-API-ID = %q, want %q", got, "ecm-id")
	}
	if got := headers.Get("X-CP-API-KEY"); got != "cp-key" {
		t.Errorf("X-CP-API-KEY = %q, want %q", got, "cp-key")
	}
	if got := headers.Get("Authorization"); got != "" {
		t.Errorf("v2 request carried Authorization %q, want none", got)
	}

	if _, err := c.GetUsers(ctx, nil); err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	headers = mock.LastHeaderFor("/v3/users")
	if got := headers.Get("Authorization"); got != "Bearer v3-token" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := headers.Get("X-ECM-API-ID"); got != "" {
		t.Errorf("v3 request carried legacy header %q, want none", got)
	}
}

func TestDispatch_ConfigErrorWithoutNetworkCall(t *testing.T) {
	// Only v2 keys configured; a v3 endpoint must fail fast.
	creds := testCredentials()
	creds.Token = ""
	c, mock := newTestClient(t, creds)

	_, err := c.GetUsers(context.Background(), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassConfig {
		t.Fatalf("GetUsers() error = %v, want config APIError", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("config error made %d network calls, want 0", mock.RequestCount())
	}
}

func TestDispatch_RetryThenSucceed(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	mock.ServeV2Collection("/routers/", routerFixtures(2))
	mock.FailTimes("/routers/", 1, 429, map[string]string{"Retry-After": "0"})

	records, err := c.GetRouters(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetRouters() error = %v, want retried success", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
	if got := mock.RequestsFor("/routers/"); got != 2 {
		t.Errorf("issued %d requests, want exactly 2 (429 then 200)", got)
	}
}

func TestDispatch_FatalAuthShortCircuit(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	mock.SetResponse("/routers/", testutil.MockResponse{
		StatusCode: 403,
		Body:       `{"detail": "forbidden"}`,
	})

	_, err := c.GetRouters(context.Background(), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassAuth {
		t.Fatalf("GetRouters() error = %v, want auth APIError", err)
	}
	if got := mock.RequestsFor("/routers/"); got != 1 {
		t.Errorf("403 was retried: %d requests, want exactly 1", got)
	}
}

func TestDispatch_RetryExhaustion(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	mock.SetResponse("/routers/", testutil.MockResponse{
		StatusCode: 503,
		Body:       `{"error": "unavailable"}`,
	})

	_, err := c.GetRouters(context.Background(), nil)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("GetRouters() error = %v, want ErrRetryExhausted", err)
	}
	if got := mock.RequestsFor("/routers/"); got != 3 {
		t.Errorf("issued %d requests, want 3 (MaxAttempts)", got)
	}
}

func TestDispatch_CollectionNotFoundIsEmpty(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())
	// No handler for /alerts/: the mock answers 404.

	records, err := c.GetAlerts(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAlerts() error = %v, want empty success on collection 404", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if got := mock.RequestsFor("/alerts/"); got != 1 {
		t.Errorf("issued %d requests, want 1", got)
	}
}

func TestDispatch_ResourceNotFoundIsFatal(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	_, err := c.GetRouterByID(context.Background(), "999")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassNotFound {
		t.Fatalf("GetRouterByID() error = %v, want not_found APIError", err)
	}
	if got := mock.RequestsFor("/routers/999/"); got != 1 {
		t.Errorf("404 on single resource was retried: %d requests", got)
	}
}

func TestDispatch_RequestErrorCarriesBody(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	mock.SetResponse("/routers/", testutil.MockResponse{
		StatusCode: 400,
		Body:       `{"errors": ["invalid filter"]}`,
	})

	_, err := c.GetRouters(context.Background(), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassRequest {
		t.Fatalf("GetRouters() error = %v, want request APIError", err)
	}
	if string(apiErr.Body) != `{"errors": ["invalid filter"]}` {
		t.Errorf("Body = %s, want decoded server error body", apiErr.Body)
	}
}

func TestVersionRouting_Inventory(t *testing.T) {
	c, _ := newTestClient(t, testCredentials())

	if got := c.InventoryEndpoint().Name; got != EndpointAssetEndpoints.Name {
		t.Errorf("inventory with token = %s, want asset_endpoints", got)
	}

	v2Only := testCredentials()
	v2Only.Token = ""
	if err := c.SetCredentials(v2Only); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}
	if got := c.InventoryEndpoint().Name; got != EndpointRouters.Name {
		t.Errorf("inventory without token = %s, want routers", got)
	}
}

func TestSetCredentials_RejectsIncomplete(t *testing.T) {
	c, _ := newTestClient(t, testCredentials())

	err := c.SetCredentials(auth.Credentials{APIID: "only-one"})
	if !errors.Is(err, auth.ErrNoCredentials) {
		t.Errorf("SetCredentials() error = %v, want ErrNoCredentials", err)
	}

	// The previous credential set stays active.
	if !c.Credentials().HasV3() {
		t.Error("failed rotation must not drop the previous credentials")
	}
}

func TestGetDeviceInventory_RoutesPerCredentials(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())
	ctx := context.Background()

	mock.ServeV3Collection("/v3/asset_endpoints", []map[string]any{{"id": "ae1"}})
	mock.ServeV2Collection("/routers/", routerFixtures(1))

	if _, err := c.GetDeviceInventory(ctx, nil); err != nil {
		t.Fatalf("GetDeviceInventory() error = %v", err)
	}
	if got := mock.RequestsFor("/v3/asset_endpoints"); got != 1 {
		t.Errorf("token configured: asset_endpoints requests = %d, want 1", got)
	}

	v2Only := testCredentials()
	v2Only.Token = ""
	if err := c.SetCredentials(v2Only); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}
	if _, err := c.GetDeviceInventory(ctx, nil); err != nil {
		t.Fatalf("GetDeviceInventory() after rotation error = %v", err)
	}
	if got := mock.RequestsFor("/routers/"); got != 1 {
		t.Errorf("token removed: routers requests = %d, want 1", got)
	}
}

func TestGet_SingleResource(t *testing.T) {
	c, mock := newTestClient(t, testCredentials())

	mock.ServeV2Resource("/routers/42/", map[string]any{"id": "42", "name": "edge-router"})

	record, err := c.GetRouterByID(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetRouterByID() error = %v", err)
	}
	if record["name"] != "edge-router" {
		t.Errorf("name = %v, want edge-router", record["name"])
	}
}
