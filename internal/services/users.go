package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/util"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

// AdminUserProvider resolves the long-lived admin user. The admin is never
// deleted.
type AdminUserProvider struct {
	tokens *che.TokenClient
	admin  config.Admin

	mu   sync.Mutex
	user *models.TestUser
}

// NewAdminUserProvider fails with a ConfigurationError when the admin
// credentials are unknown.
func NewAdminUserProvider(tokens *che.TokenClient, admin config.Admin) (*AdminUserProvider, error) {
	if admin.Email == "" {
		return nil, srvErrors.NewMissingCredentialsError("admin.email")
	}
	if admin.Password == "" {
		return nil, srvErrors.NewMissingCredentialsError("admin.password")
	}
	return &AdminUserProvider{tokens: tokens, admin: admin}, nil
}

// Get returns the admin user, fetching its token on first use.
func (p *AdminUserProvider) Get(ctx context.Context) (*models.TestUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.user != nil {
		return p.user, nil
	}

	token, err := p.tokens.Token(ctx, p.admin.Name, p.admin.Password, p.admin.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain admin token: %w", err)
	}

	p.user = &models.TestUser{
		ID:       token.Subject,
		Name:     p.admin.Name,
		Email:    p.admin.Email,
		Password: p.admin.Password,
		Token:    token.Raw,
		Kind:     models.UserKindAdmin,
	}

	zap.S().Named("admin_user_provider").Infow("admin user resolved", "name", p.user.Name, "id", p.user.ID)

	return p.user, nil
}

// Delete is a no-op: the admin user outlives the suite.
func (p *AdminUserProvider) Delete(context.Context, *models.TestUser) error {
	return nil
}

// UserProvider creates short-lived users for tests and removes them at
// teardown.
type UserProvider struct {
	admin  *AdminUserProvider
	tokens *che.TokenClient
	api    *che.ServiceApi

	mu    sync.Mutex
	users map[string]*models.TestUser
}

// NewUserProvider creates users through api authenticated as the admin.
func NewUserProvider(admin *AdminUserProvider, tokens *che.TokenClient, api *che.ServiceApi) *UserProvider {
	return &UserProvider{
		admin:  admin,
		tokens: tokens,
		api:    api,
		users:  make(map[string]*models.TestUser),
	}
}

// Create registers a new user named user-<random> and fetches its token.
func (p *UserProvider) Create(ctx context.Context) (*models.TestUser, error) {
	client, err := p.userClient(ctx)
	if err != nil {
		return nil, err
	}

	name := util.GenerateName("user-", 8)
	user, err := client.Create(ctx, name, name+"@che.local", util.GenerateName("", 12))
	if err != nil {
		return nil, fmt.Errorf("failed to create test user %q: %w", name, err)
	}

	p.mu.Lock()
	p.users[user.ID] = user
	p.mu.Unlock()

	token, err := p.tokens.Token(ctx, user.Name, user.Password, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token of test user %q: %w", name, err)
	}
	user.Token = token.Raw

	return user, nil
}

// Delete removes a user created by this provider. Admin users are ignored.
func (p *UserProvider) Delete(ctx context.Context, user *models.TestUser) error {
	if user == nil || user.IsAdmin() {
		return nil
	}

	client, err := p.userClient(ctx)
	if err != nil {
		return err
	}

	err = client.Delete(ctx, user.ID)
	if err != nil && !srvErrors.IsResourceNotFoundError(err) {
		return fmt.Errorf("failed to delete test user %q: %w", user.Name, err)
	}

	p.mu.Lock()
	delete(p.users, user.ID)
	p.mu.Unlock()
	return nil
}

// Shutdown deletes every user still tracked, attempting all of them.
func (p *UserProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	users := make([]*models.TestUser, 0, len(p.users))
	for _, u := range p.users {
		users = append(users, u)
	}
	p.mu.Unlock()

	var errs error
	for _, u := range users {
		if err := p.Delete(ctx, u); err != nil {
			zap.S().Named("user_provider").Warnw("failed to delete test user", "name", u.Name, "id", u.ID, "error", err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (p *UserProvider) userClient(ctx context.Context) (*che.UserClient, error) {
	admin, err := p.admin.Get(ctx)
	if err != nil {
		return nil, err
	}
	return che.NewUserClient(p.api.WithToken(admin.Token)), nil
}
