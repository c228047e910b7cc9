package client

import (
	"testing"
)

func TestQuery_EncodeV2(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		expected map[string]string
	}{
		{
			name:  "empty query gets default page size",
			query: NewQuery(),
			expected: map[string]string{
				"limit": "500",
			},
		},
		{
			name:  "equality filter",
			query: NewQuery().Set("state", "online"),
			expected: map[string]string{
				"state": "online",
				"limit": "500",
			},
		},
		{
			name:  "membership filter comma-joined",
			query: NewQuery().In("id__in", "1", "2", "3"),
			expected: map[string]string{
				"id__in": "1,2,3",
				"limit":  "500",
			},
		},
		{
			name:  "ordering",
			query: NewQuery().SortBy("name", "-id"),
			expected: map[string]string{
				"order_by": "name,-id",
				"limit":    "500",
			},
		},
		{
			name:  "page size override capped at endpoint max",
			query: NewQuery().WithPageSize(9999),
			expected: map[string]string{
				"limit": "500",
			},
		},
		{
			name:  "small page size override kept",
			query: NewQuery().WithPageSize(10),
			expected: map[string]string{
				"limit": "10",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.query.encode(EndpointRouters)
			if len(params) != len(tt.expected) {
				t.Errorf("encode() produced %d params, want %d: %v", len(params), len(tt.expected), params)
			}
			for key, want := range tt.expected {
				if got := params.Get(key); got != want {
					t.Errorf("param %s = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestQuery_EncodeV3(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		expected map[string]string
	}{
		{
			name:  "plain filter",
			query: NewQuery().Set("email", "ops@example.com"),
			expected: map[string]string{
				"filter[email]": "ops@example.com",
				"page[size]":    "50",
			},
		},
		{
			name:  "operator filter",
			query: NewQuery().Set("created_at__lt", "2026-01-01"),
			expected: map[string]string{
				"filter[created_at][lt]": "2026-01-01",
				"page[size]":             "50",
			},
		},
		{
			name:  "sort",
			query: NewQuery().SortBy("-created_at"),
			expected: map[string]string{
				"sort":       "-created_at",
				"page[size]": "50",
			},
		},
		{
			name:  "page size capped at 50",
			query: NewQuery().WithPageSize(500),
			expected: map[string]string{
				"page[size]": "50",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.query.encode(EndpointUsers)
			if len(params) != len(tt.expected) {
				t.Errorf("encode() produced %d params, want %d: %v", len(params), len(tt.expected), params)
			}
			for key, want := range tt.expected {
				if got := params.Get(key); got != want {
					t.Errorf("param %s = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestQuery_SetReplaces(t *testing.T) {
	q := NewQuery().Set("state", "online").Set("state", "offline")
	params := q.encode(EndpointRouters)
	if got := params.Get("state"); got != "offline" {
		t.Errorf("state = %q, want %q", got, "offline")
	}
}

func TestQuery_OversizedFilter(t *testing.T) {
	small := make([]string, 100)
	big := make([]string, 101)
	for i := range big {
		big[i] = "x"
		if i < len(small) {
			small[i] = "x"
		}
	}

	q := NewQuery().In("id__in", small...)
	if idx := q.oversizedFilter(100); idx != -1 {
		t.Errorf("oversizedFilter() = %d for 100 values, want -1", idx)
	}

	q = NewQuery().Set("state", "online").In("id__in", big...)
	if idx := q.oversizedFilter(100); idx != 1 {
		t.Errorf("oversizedFilter() = %d for 101 values, want 1", idx)
	}
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	q := NewQuery().In("id__in", "1", "2").WithLimit(10)
	copied := q.clone()

	copied.filters[0].Values[0] = "changed"
	copied.Limit = 99

	if q.filters[0].Values[0] != "1" {
		t.Error("clone shares filter value storage with original")
	}
	if q.Limit != 10 {
		t.Error("clone shares limit with original")
	}
}

func TestEndpoint_Item(t *testing.T) {
	item := EndpointRouters.Item("42")
	if item.Path != "/routers/42/" {
		t.Errorf("v2 item path = %q, want %q", item.Path, "/routers/42/")
	}
	if item.Collection {
		t.Error("item endpoint must not be a collection")
	}

	item = EndpointUsers.Item("abc")
	if item.Path != "/users/abc" {
		t.Errorf("v3 item path = %q, want %q", item.Path, "/users/abc")
	}
}

func TestEndpointCatalogVersions(t *testing.T) {
	for _, ep := range []Endpoint{EndpointAccounts, EndpointRouters, EndpointGroups, EndpointAlerts} {
		if ep.Version != V2 {
			t.Errorf("%s version = %s, want v2", ep.Name, ep.Version)
		}
		if ep.MaxPageSize != V2MaxPageSize {
			t.Errorf("%s max page size = %d, want %d", ep.Name, ep.MaxPageSize, V2MaxPageSize)
		}
	}
	for _, ep := range []Endpoint{EndpointUsers, EndpointSubscriptions, EndpointAssetEndpoints} {
		if ep.Version != V3 {
			t.Errorf("%s version = %s, want v3", ep.Name, ep.Version)
		}
		if ep.MaxPageSize != V3MaxPageSize {
			t.Errorf("%s max page size = %d, want %d", ep.Name, ep.MaxPageSize, V3MaxPageSize)
		}
	}
}
