package client

import (
	"context"
	"fmt"
	"strconv"
)

// Thin per-resource wrappers over the legacy v2 surface. Each one is a few
// lines over List/Get/Create/Update/Delete; anything not enumerated here is
// reachable through those raw methods with a custom descriptor.

// GetAccounts lists accounts matching q.
func (c *Client) GetAccounts(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointAccounts, q)
}

// GetAccountByID fetches one account.
func (c *Client) GetAccountByID(ctx context.Context, id string) (Record, error) {
	return c.Get(ctx, EndpointAccounts, id)
}

// CreateSubaccount creates a subaccount under the given parent.
func (c *Client) CreateSubaccount(ctx context.Context, parentID, name string) (Record, error) {
	return c.Create(ctx, EndpointAccounts, Record{
		"account": c.v2ResourceRef(EndpointAccounts, parentID),
		"name":    name,
	})
}

// RenameAccount changes an account's display name.
func (c *Client) RenameAccount(ctx context.Context, id, name string) (Record, error) {
	return c.Update(ctx, EndpointAccounts, id, Record{"name": name})
}

// DeleteAccount removes an account.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.Delete(ctx, EndpointAccounts, id)
}

// GetGroups lists device groups matching q.
func (c *Client) GetGroups(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointGroups, q)
}

// GetGroupByID fetches one group.
func (c *Client) GetGroupByID(ctx context.Context, id string) (Record, error) {
	return c.Get(ctx, EndpointGroups, id)
}

// CreateGroup creates a device group under an account for one product line,
// pinned to a firmware version.
func (c *Client) CreateGroup(ctx context.Context, accountID, name, productID, firmwareID string) (Record, error) {
	return c.Create(ctx, EndpointGroups, Record{
		"account":         c.v2ResourceRef(EndpointAccounts, accountID),
		"name":            name,
		"product":         c.v2ResourceRef(EndpointProducts, productID),
		"target_firmware": c.v2ResourceRef(EndpointFirmwares, firmwareID),
	})
}

// RenameGroup changes a group's display name.
func (c *Client) RenameGroup(ctx context.Context, id, name string) (Record, error) {
	return c.Update(ctx, EndpointGroups, id, Record{"name": name})
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.Delete(ctx, EndpointGroups, id)
}

// PatchGroupConfiguration merges config into the group's configuration
// blob. The upstream stores group config as a [changes, removals] pair.
func (c *Client) PatchGroupConfiguration(ctx context.Context, groupID string, config Record) (Record, error) {
	return c.Patch(ctx, EndpointGroups, groupID, Record{
		"configuration": []any{config, []any{}},
	})
}

// GetRouters lists routers matching q. Oversized id__in filters are chunked
// transparently.
func (c *Client) GetRouters(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointRouters, q)
}

// GetRouterByID fetches one router.
func (c *Client) GetRouterByID(ctx context.Context, id string) (Record, error) {
	return c.Get(ctx, EndpointRouters, id)
}

// RenameRouter changes a router's display name.
func (c *Client) RenameRouter(ctx context.Context, id, name string) (Record, error) {
	return c.Update(ctx, EndpointRouters, id, Record{"name": name})
}

// AssignRouterToGroup moves a router into a group.
func (c *Client) AssignRouterToGroup(ctx context.Context, routerID, groupID string) (Record, error) {
	return c.Update(ctx, EndpointRouters, routerID, Record{
		"group": c.v2ResourceRef(EndpointGroups, groupID),
	})
}

// AssignRouterToAccount moves a router to another account.
func (c *Client) AssignRouterToAccount(ctx context.Context, routerID, accountID string) (Record, error) {
	return c.Update(ctx, EndpointRouters, routerID, Record{
		"account": c.v2ResourceRef(EndpointAccounts, accountID),
	})
}

// DeleteRouter unregisters a router.
func (c *Client) DeleteRouter(ctx context.Context, id string) error {
	return c.Delete(ctx, EndpointRouters, id)
}

// GetNetDevices lists network devices matching q.
func (c *Client) GetNetDevices(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointNetDevices, q)
}

// GetNetDevicesForRouter lists the network devices of one router.
func (c *Client) GetNetDevicesForRouter(ctx context.Context, routerID string) ([]Record, error) {
	return c.List(ctx, EndpointNetDevices, NewQuery().Set("router", routerID))
}

// GetAlerts lists alerts matching q.
func (c *Client) GetAlerts(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointAlerts, q)
}

// GetConfigurationManagers lists configuration managers matching q.
func (c *Client) GetConfigurationManagers(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointConfigurationManagers, q)
}

// GetConfigurationManagerID resolves the configuration manager owning one
// router. Config updates address the manager, not the router itself.
func (c *Client) GetConfigurationManagerID(ctx context.Context, routerID string) (string, error) {
	records, err := c.List(ctx, EndpointConfigurationManagers,
		NewQuery().Set("router", routerID).WithLimit(1))
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", &APIError{
			Class:    ErrorClassNotFound,
			Endpoint: EndpointConfigurationManagers.Name,
			Message:  fmt.Sprintf("no configuration manager for router %s", routerID),
		}
	}
	return recordID(records[0])
}

// UpdateConfigurationManager applies a configuration change to one manager.
func (c *Client) UpdateConfigurationManager(ctx context.Context, id string, config Record) (Record, error) {
	return c.Update(ctx, EndpointConfigurationManagers, id, config)
}

// GetLocations lists device locations matching q.
func (c *Client) GetLocations(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointLocations, q)
}

// CreateLocation pins a custom location to a router.
func (c *Client) CreateLocation(ctx context.Context, routerID string, latitude, longitude float64) (Record, error) {
	return c.Create(ctx, EndpointLocations, Record{
		"router":    c.v2ResourceRef(EndpointRouters, routerID),
		"latitude":  latitude,
		"longitude": longitude,
		"method":    "manual",
	})
}

// DeleteLocation removes a location record.
func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	return c.Delete(ctx, EndpointLocations, id)
}

// GetHistoricalLocations lists a router's recorded location trail.
func (c *Client) GetHistoricalLocations(ctx context.Context, routerID string, q *Query) ([]Record, error) {
	if q == nil {
		q = NewQuery()
	}
	return c.List(ctx, EndpointHistoricalLocations, q.Set("router", routerID))
}

// GetProducts lists the hardware product catalog.
func (c *Client) GetProducts(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointProducts, q)
}

// GetFirmwares lists available firmware versions matching q.
func (c *Client) GetFirmwares(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointFirmwares, q)
}

// RebootDevice schedules a reboot of one router.
func (c *Client) RebootDevice(ctx context.Context, routerID string) (Record, error) {
	return c.Create(ctx, EndpointRebootActivity, Record{"router": routerID})
}

// RebootGroup schedules a reboot of every router in a group.
func (c *Client) RebootGroup(ctx context.Context, groupID string) (Record, error) {
	return c.Create(ctx, EndpointRebootActivity, Record{"group": groupID})
}

// v2ResourceRef renders the absolute resource URL the v2 surface expects in
// relation fields.
func (c *Client) v2ResourceRef(ep Endpoint, id string) string {
	return c.config.BaseURLV2 + ep.Path + id + "/"
}

// recordID extracts a record's id field as a string. The v2 surface returns
// numeric ids, v3 string ids.
func recordID(record Record) (string, error) {
	switch id := record["id"].(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("record has no usable id field (%T)", record["id"])
	}
}
