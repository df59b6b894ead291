package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/pkg/che"
)

// TokenGenerator returns a bearer token for the given user.
type TokenGenerator func(ctx context.Context, username, password, email string) (string, error)

// PlatformSvc builds platform clients authenticated as one user.
type PlatformSvc struct {
	api      *che.ServiceApi
	tokenGen TokenGenerator
}

// NewPlatformService creates a PlatformSvc backed by a token generator.
// The tokenGen function is typically infraManager.GenerateToken.
func NewPlatformService(apiURL string, tokenGen TokenGenerator) *PlatformSvc {
	return &PlatformSvc{
		api:      che.NewServiceApi(apiURL),
		tokenGen: tokenGen,
	}
}

// WithAuthUser generates a token for the given user and returns a new
// PlatformSvc injecting it into all subsequent requests.
// Usage: svc.WithAuthUser(ctx, "admin", "admin", "admin@che").Workspaces()
func (s *PlatformSvc) WithAuthUser(ctx context.Context, username, password, email string) *PlatformSvc {
	if s.tokenGen == nil {
		zap.S().Warn("WithAuthUser called without a token generator; requests will have no auth token")
		return s
	}
	token, err := s.tokenGen(ctx, username, password, email)
	if err != nil {
		zap.S().Errorf("WithAuthUser: failed to generate token: %v", err)
		return s
	}
	return &PlatformSvc{
		api:      s.api.WithToken(token),
		tokenGen: s.tokenGen,
	}
}

func (s *PlatformSvc) Workspaces(opts ...che.WorkspaceClientOption) *che.WorkspaceClient {
	return che.NewWorkspaceClient(s.api, opts...)
}

func (s *PlatformSvc) Users() *che.UserClient {
	return che.NewUserClient(s.api)
}

func (s *PlatformSvc) Profile() *che.ProfileClient {
	return che.NewProfileClient(s.api)
}
