package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eclipse-che/che-e2e-harness/internal/handlers"
	"github.com/eclipse-che/che-e2e-harness/internal/store"
)

// FakePlatform is an in-process platform: workspace API, user API and token
// issuer on one listener.
type FakePlatform struct {
	*Server
	store  *store.Store
	issuer *handlers.TokenIssuer
}

// NewFakePlatform builds a fake platform listening on addr. Workspaces turn
// RUNNING after startDelay status reads.
func NewFakePlatform(addr string, startDelay int) (*FakePlatform, error) {
	issuer, err := handlers.NewTokenIssuer("")
	if err != nil {
		return nil, err
	}
	s := store.NewStore(store.WithStartDelay(startDelay))
	h := handlers.New(s, issuer)

	srv, err := NewServer(addr, func(api, auth *gin.RouterGroup) {
		handlers.RegisterAPIHandlers(api, h)
		handlers.RegisterAuthHandlers(auth, h)
	})
	if err != nil {
		return nil, err
	}
	issuer.SetIssuer(srv.URL() + "/auth")

	return &FakePlatform{Server: srv, store: s, issuer: issuer}, nil
}

func (p *FakePlatform) APIURL() string {
	return p.URL() + "/api"
}

func (p *FakePlatform) AuthURL() string {
	return p.URL() + "/auth"
}

func (p *FakePlatform) Store() *store.Store {
	return p.store
}

// GenerateToken issues a token for username without a round trip.
func (p *FakePlatform) GenerateToken(username, email string) (string, error) {
	subject := handlers.SubjectFor(username)
	if u, ok := p.store.Users().FindByName(username); ok {
		subject = u.Id
	}
	return p.issuer.GenerateToken(subject, username, email)
}

// StartBackground serves in a goroutine until ctx is done.
func (p *FakePlatform) StartBackground(ctx context.Context) {
	go func() {
		_ = p.Start(ctx)
	}()
}
