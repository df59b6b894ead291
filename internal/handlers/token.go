package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
)

const tokenAudience = "che-e2e"

// TokenIssuer is a minimal OIDC provider. It signs RS256 tokens with a key
// pair generated at startup and serves the JWKS needed to verify them.
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	kid        string
	issuer     string
}

// TokenClaims are the claims carried by issued tokens.
type TokenClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type oidcDiscovery struct {
	Issuer        string `json:"issuer"`
	JWKSURI       string `json:"jwks_uri"`
	TokenEndpoint string `json:"token_endpoint"`
}

// NewTokenIssuer generates a 2048-bit RSA key pair and a random kid.
func NewTokenIssuer(issuer string) (*TokenIssuer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return &TokenIssuer{
		privateKey: privateKey,
		kid:        uuid.NewString(),
		issuer:     issuer,
	}, nil
}

// SetIssuer sets the issuer claim, once the listen address is known.
func (t *TokenIssuer) SetIssuer(issuer string) {
	t.issuer = issuer
}

// GenerateToken creates a signed token for username with the given subject.
func (t *TokenIssuer) GenerateToken(subject, username, email string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		PreferredUsername: username,
		Email:             email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = t.kid

	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and the registered claims of raw.
func (t *TokenIssuer) Verify(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return &t.privateKey.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SubjectFor returns a stable subject for a username that is not a stored user.
func SubjectFor(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(username)).String()
}

// GetDiscovery serves the OIDC discovery document.
// (GET /auth/.well-known/openid-configuration)
func (h *Handler) GetDiscovery(c *gin.Context) {
	c.JSON(http.StatusOK, oidcDiscovery{
		Issuer:        h.issuer.issuer,
		JWKSURI:       h.issuer.issuer + "/certs",
		TokenEndpoint: h.issuer.issuer + "/token",
	})
}

// GetJWKS serves the public key of the issuer.
// (GET /auth/certs)
func (h *Handler) GetJWKS(c *gin.Context) {
	pub := &h.issuer.privateKey.PublicKey
	c.JSON(http.StatusOK, jwksResponse{
		Keys: []jwkKey{
			{
				Kty: "RSA",
				Alg: "RS256",
				Kid: h.issuer.kid,
				Use: "sig",
				N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	})
}

// CreateToken issues a token. Stored users must present their password and
// get their user id as subject; any other username gets a stable subject.
// (POST /auth/token)
func (h *Handler) CreateToken(c *gin.Context) {
	var req v1.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "invalid request body"})
		return
	}
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "username is required"})
		return
	}

	subject := SubjectFor(req.Username)
	email := req.Email
	if u, ok := h.store.Users().FindByName(req.Username); ok {
		if u.Password != "" && u.Password != req.Password {
			c.JSON(http.StatusUnauthorized, v1.ErrorResponse{Message: "invalid credentials"})
			return
		}
		subject = u.Id
		email = u.Email
	}

	signed, err := h.issuer.GenerateToken(subject, req.Username, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, v1.TokenResponse{Token: signed})
}
