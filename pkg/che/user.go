package che

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const apiUserPath = "/user"

// UserClient manages platform users. The api must authenticate as an admin.
type UserClient struct {
	api *ServiceApi
}

func NewUserClient(api *ServiceApi) *UserClient {
	return &UserClient{api: api}
}

// Create registers a new user.
// POST /user
func (c *UserClient) Create(ctx context.Context, name, email, password string) (*models.TestUser, error) {
	resp, err := c.api.Do(ctx, http.MethodPost, apiUserPath, nil, v1.UserDto{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, resp.Err()
	}

	var dto v1.UserDto
	if err := resp.Decode(&dto); err != nil {
		return nil, err
	}
	dto.Password = password

	zap.S().Named("user_client").Infow("user created", "name", name, "id", dto.Id)

	return v1.NewUserFromDto(dto, models.UserKindEphemeral), nil
}

// Delete removes the user with the given id.
// DELETE /user/{id}
func (c *UserClient) Delete(ctx context.Context, id string) error {
	p, err := pathParam("id", id)
	if err != nil {
		return err
	}

	resp, err := c.api.Do(ctx, http.MethodDelete, apiUserPath+"/"+p, nil, nil)
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return srvErrors.NewUserNotFoundError(id)
	case !resp.Success():
		return resp.Err()
	}
	return nil
}
