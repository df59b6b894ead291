package infra

import "context"

// InfraManager abstracts the platform lifecycle for e2e tests.
// Local: an in-process fake platform with its own token issuer.
// Remote: no-op, the platform is managed externally.
type InfraManager interface {
	StartPlatform(ctx context.Context) error
	StopPlatform() error
	APIURL() string
	AuthURL() string
	GenerateToken(ctx context.Context, username, password, email string) (string, error)
}

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	// AdminPassword is accepted by the local token issuer for the admin.
	AdminPassword = "admin"
)
