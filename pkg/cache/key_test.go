package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name: "no params",
			key: Key{
				Version:  "v2",
				Endpoint: "routers",
			},
			expected: "ncm:list:v2:routers",
		},
		{
			name: "endpoint slashes trimmed",
			key: Key{
				Version:  "v2",
				Endpoint: "/routers/",
			},
			expected: "ncm:list:v2:routers",
		},
		{
			name: "params sorted",
			key: Key{
				Version:  "v2",
				Endpoint: "routers",
				Params: url.Values{
					"limit": []string{"500"},
					"group": []string{"123"},
				},
			},
			expected: "ncm:list:v2:routers:group=123:limit=500",
		},
		{
			name: "multi-value param joined",
			key: Key{
				Version:  "v2",
				Endpoint: "routers",
				Params: url.Values{
					"id__in": []string{"1,2,3"},
				},
			},
			expected: "ncm:list:v2:routers:id__in=1,2,3",
		},
		{
			name: "v3 surface distinct",
			key: Key{
				Version:  "v3",
				Endpoint: "users",
				Params: url.Values{
					"page[size]": []string{"50"},
				},
			},
			expected: "ncm:list:v3:users:page[size]=50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Version:  "v2",
		Endpoint: "routers",
		Params: url.Values{
			"c": []string{"3"},
			"a": []string{"1"},
			"b": []string{"2"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
