package client

import "strings"

// Version identifies an NCM API surface.
type Version string

const (
	// V2 is the legacy surface authenticated by four custom headers.
	V2 Version = "v2"

	// V3 is the current surface authenticated by a bearer token.
	V3 Version = "v3"
)

// Page size bounds enforced by the upstream service.
const (
	// V2DefaultPageSize is the client default for v2 walks. The upstream
	// default of 20 makes long walks needlessly chatty.
	V2DefaultPageSize = 500

	// V2MaxPageSize is the server-side cap on the v2 limit parameter.
	V2MaxPageSize = 500

	// V3MaxPageSize is the server-side cap on page[size].
	V3MaxPageSize = 50
)

// Endpoint describes one logical NCM resource collection: which surface it
// lives on, its path, and its paging bounds. Descriptors are static and
// never mutated.
type Endpoint struct {
	// Name is the logical resource name used in logs, metrics, and errors.
	Name string

	// Version selects the API surface, and with it the auth mode.
	Version Version

	// Path is the collection path under the surface's base URL.
	Path string

	// DefaultPageSize is used when the query carries no override.
	DefaultPageSize int

	// MaxPageSize caps any page-size override.
	MaxPageSize int

	// Collection marks list endpoints, on which a 404 decodes as an empty
	// page. Single-resource reads surface 404 as not_found instead.
	Collection bool
}

// Item derives the single-resource descriptor for one record of a
// collection. A 404 on the derived endpoint is a not_found error.
func (e Endpoint) Item(id string) Endpoint {
	item := e
	item.Path = strings.TrimSuffix(e.Path, "/") + "/" + id + "/"
	if e.Version == V3 {
		item.Path = strings.TrimSuffix(e.Path, "/") + "/" + id
	}
	item.Collection = false
	return item
}

// v2Endpoint builds a descriptor on the legacy surface.
func v2Endpoint(name string) Endpoint {
	return Endpoint{
		Name:            name,
		Version:         V2,
		Path:            "/" + name + "/",
		DefaultPageSize: V2DefaultPageSize,
		MaxPageSize:     V2MaxPageSize,
		Collection:      true,
	}
}

// v3Endpoint builds a descriptor on the current surface.
func v3Endpoint(name string) Endpoint {
	return Endpoint{
		Name:            name,
		Version:         V3,
		Path:            "/" + name,
		DefaultPageSize: V3MaxPageSize,
		MaxPageSize:     V3MaxPageSize,
		Collection:      true,
	}
}

// The NCM resource catalog. Unenumerated resources remain reachable through
// the raw List/Get/Create/Update/Delete methods with a custom descriptor.
var (
	// Legacy v2 resources.
	EndpointAccounts              = v2Endpoint("accounts")
	EndpointGroups                = v2Endpoint("groups")
	EndpointRouters               = v2Endpoint("routers")
	EndpointNetDevices            = v2Endpoint("net_devices")
	EndpointAlerts                = v2Endpoint("alerts")
	EndpointConfigurationManagers = v2Endpoint("configuration_managers")
	EndpointLocations             = v2Endpoint("locations")
	EndpointProducts              = v2Endpoint("products")
	EndpointFirmwares             = v2Endpoint("firmwares")
	EndpointRebootActivity        = v2Endpoint("reboot_activity")
	EndpointHistoricalLocations   = v2Endpoint("historical_locations")

	// Current v3 resources.
	EndpointUsers          = v3Endpoint("users")
	EndpointSubscriptions  = v3Endpoint("subscriptions")
	EndpointAssetEndpoints = v3Endpoint("asset_endpoints")
)
