package client

import "context"

// Wrappers over the current v3 surface. v3 follows JSON:API conventions, so
// mutation bodies carry a typed data envelope.

// jsonAPIBody wraps attributes in the JSON:API envelope the v3 surface expects.
func jsonAPIBody(resourceType string, attributes Record) Record {
	return Record{
		"data": Record{
			"type":       resourceType,
			"attributes": attributes,
		},
	}
}

// GetUsers lists NCM users matching q.
func (c *Client) GetUsers(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointUsers, q)
}

// CreateUser invites a new user.
func (c *Client) CreateUser(ctx context.Context, email, firstName, lastName string) (Record, error) {
	return c.Create(ctx, EndpointUsers, jsonAPIBody("users", Record{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}))
}

// UpdateUser modifies a user's attributes.
func (c *Client) UpdateUser(ctx context.Context, id string, attributes Record) (Record, error) {
	body := Record{
		"data": Record{
			"type":       "users",
			"id":         id,
			"attributes": attributes,
		},
	}
	return c.Update(ctx, EndpointUsers, id, body)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Delete(ctx, EndpointUsers, id)
}

// GetSubscriptions lists active subscriptions matching q.
func (c *Client) GetSubscriptions(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointSubscriptions, q)
}

// GetAssetEndpoints lists the v3 device inventory matching q.
func (c *Client) GetAssetEndpoints(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, EndpointAssetEndpoints, q)
}

// GetDeviceInventory lists devices through whichever surface version routing
// selected at construction: asset_endpoints when a token is configured,
// routers otherwise.
func (c *Client) GetDeviceInventory(ctx context.Context, q *Query) ([]Record, error) {
	return c.List(ctx, c.InventoryEndpoint(), q)
}
