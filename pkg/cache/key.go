package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all list-result cache keys in Redis.
const KeyPrefix = "ncm:list"

// Key identifies one cached list result.
type Key struct {
	// Version is the API surface the walk ran against ("v2" or "v3").
	Version string

	// Endpoint is the logical collection name (e.g., "routers").
	Endpoint string

	// Params are the fully encoded query parameters of the walk,
	// pagination controls included.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: ncm:list:version:endpoint:param1=val1:param2=val2
//
// Example:
//
//	ncm:list:v2:routers:group=123:limit=500
func (k Key) String() string {
	parts := []string{KeyPrefix, k.Version, strings.Trim(k.Endpoint, "/")}

	// Add params (sorted for determinism)
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Params[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
