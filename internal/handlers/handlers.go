package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/store"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const (
	subjectKey  = "subject"
	usernameKey = "username"
)

type Handler struct {
	store  *store.Store
	issuer *TokenIssuer
}

func New(s *store.Store, issuer *TokenIssuer) *Handler {
	return &Handler{
		store:  s,
		issuer: issuer,
	}
}

// RegisterAPIHandlers registers the platform REST routes on router.
func RegisterAPIHandlers(router gin.IRouter, h *Handler) {
	api := router.Group("", h.Authenticate())

	api.POST("/workspace", h.CreateWorkspace)
	api.GET("/workspace", h.FindWorkspaces)
	api.GET("/workspace/:id", h.GetWorkspace)
	api.DELETE("/workspace/:id", h.DeleteWorkspace)
	api.POST("/workspace/:id/runtime", h.StartWorkspace)
	api.DELETE("/workspace/:id/runtime", h.StopWorkspace)

	api.PUT("/profile/attributes", h.UpdateProfileAttributes)

	api.POST("/user", h.CreateUser)
	api.DELETE("/user/:id", h.DeleteUser)
}

// RegisterAuthHandlers registers the token issuer routes on router.
func RegisterAuthHandlers(router gin.IRouter, h *Handler) {
	router.GET("/.well-known/openid-configuration", h.GetDiscovery)
	router.GET("/certs", h.GetJWKS)
	router.POST("/token", h.CreateToken)
}

// Authenticate verifies the bearer token and stores its subject and username
// in the request context.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, v1.ErrorResponse{Message: "missing bearer token"})
			return
		}

		claims, err := h.issuer.Verify(raw)
		if err != nil {
			zap.S().Named("auth").Debugw("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, v1.ErrorResponse{Message: "invalid bearer token"})
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Set(usernameKey, claims.PreferredUsername)
		c.Next()
	}
}

// respondError maps store errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case srvErrors.IsResourceNotFoundError(err):
		status = http.StatusNotFound
	case srvErrors.IsDuplicateResourceError(err):
		status = http.StatusConflict
	}
	c.JSON(status, v1.ErrorResponse{Message: err.Error()})
}
