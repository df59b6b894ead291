package che

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
)

// TokenClient obtains bearer tokens from the identity provider.
type TokenClient struct {
	api *ServiceApi
}

func NewTokenClient(authURL string, opts ...ServiceApiOption) *TokenClient {
	return &TokenClient{api: NewServiceApi(authURL, opts...)}
}

// Token is a signed access token together with its subject.
type Token struct {
	Raw     string
	Subject string
}

// Token requests a token for the user. The subject is read from the token
// claims without verifying the signature; the platform verifies it.
// POST /token
func (c *TokenClient) Token(ctx context.Context, username, password, email string) (*Token, error) {
	resp, err := c.api.Do(ctx, http.MethodPost, "/token", nil, v1.TokenRequest{Username: username, Password: password, Email: email})
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, resp.Err()
	}

	var tr v1.TokenResponse
	if err := resp.Decode(&tr); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.Token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token for %q: %w", username, err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("failed to read token subject for %q: %w", username, err)
	}

	return &Token{Raw: tr.Token, Subject: sub}, nil
}
