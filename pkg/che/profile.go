package che

import (
	"context"
	"net/http"
)

const apiProfileAttributesPath = "/profile/attributes"

// ProfileClient updates the profile of the user the api authenticates as.
type ProfileClient struct {
	api *ServiceApi
}

func NewProfileClient(api *ServiceApi) *ProfileClient {
	return &ProfileClient{api: api}
}

// SetAttributes replaces profile attributes.
// PUT /profile/attributes
func (c *ProfileClient) SetAttributes(ctx context.Context, attributes map[string]string) error {
	resp, err := c.api.Do(ctx, http.MethodPut, apiProfileAttributesPath, nil, attributes)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return resp.Err()
	}
	return nil
}

func (c *ProfileClient) SetUserNames(ctx context.Context, firstName, lastName string) error {
	return c.SetAttributes(ctx, map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
	})
}
