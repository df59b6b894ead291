package infra

import (
	"context"

	"github.com/eclipse-che/che-e2e-harness/pkg/che"
)

// RemoteInfraManager implements InfraManager for an externally managed
// platform. Tokens come from its identity provider.
type RemoteInfraManager struct {
	apiURL  string
	authURL string
	tokens  *che.TokenClient
}

func NewRemoteInfraManager(apiURL, authURL string) *RemoteInfraManager {
	return &RemoteInfraManager{
		apiURL:  apiURL,
		authURL: authURL,
		tokens:  che.NewTokenClient(authURL),
	}
}

func (r *RemoteInfraManager) StartPlatform(context.Context) error { return nil }
func (r *RemoteInfraManager) StopPlatform() error                 { return nil }

func (r *RemoteInfraManager) APIURL() string {
	return r.apiURL
}

func (r *RemoteInfraManager) AuthURL() string {
	return r.authURL
}

func (r *RemoteInfraManager) GenerateToken(ctx context.Context, username, password, email string) (string, error) {
	t, err := r.tokens.Token(ctx, username, password, email)
	if err != nil {
		return "", err
	}
	return t.Raw, nil
}
