package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
)

// CreateWorkspace creates a stopped workspace in the namespace query
// parameter, or the caller's namespace
// (POST /workspace)
func (h *Handler) CreateWorkspace(c *gin.Context) {
	var config models.WorkspaceConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "invalid workspace config"})
		return
	}
	if config.Name == "" {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Message: "workspace name is required"})
		return
	}

	namespace := c.Query("namespace")
	if namespace == "" {
		namespace = c.GetString(usernameKey)
	}

	dto, err := h.store.Workspaces().Create(namespace, config)
	if err != nil {
		respondError(c, err)
		return
	}

	zap.S().Named("workspace_handler").Infow("workspace created", "id", dto.Id, "name", config.Name, "namespace", namespace)

	c.JSON(http.StatusCreated, dto)
}

// FindWorkspaces lists workspaces filtered by name and owner
// (GET /workspace)
func (h *Handler) FindWorkspaces(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Workspaces().Find(c.Query("name"), c.Query("owner")))
}

// GetWorkspace returns a workspace by id
// (GET /workspace/{id})
func (h *Handler) GetWorkspace(c *gin.Context) {
	dto, err := h.store.Workspaces().Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// DeleteWorkspace removes a stopped workspace
// (DELETE /workspace/{id})
func (h *Handler) DeleteWorkspace(c *gin.Context) {
	id := c.Param("id")

	dto, err := h.store.Workspaces().Lookup(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if dto.Status != string(models.WorkspaceStatusStopped) {
		c.JSON(http.StatusConflict, v1.ErrorResponse{Message: "workspace " + id + " is " + dto.Status + ", stop it first"})
		return
	}

	if err := h.store.Workspaces().Delete(id); err != nil {
		respondError(c, err)
		return
	}

	zap.S().Named("workspace_handler").Infow("workspace removed", "id", id)

	c.Status(http.StatusNoContent)
}

// StartWorkspace starts a workspace with the given environment
// (POST /workspace/{id}/runtime)
func (h *Handler) StartWorkspace(c *gin.Context) {
	dto, err := h.store.Workspaces().Start(c.Param("id"), c.Query("environment"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// StopWorkspace stops a workspace
// (DELETE /workspace/{id}/runtime)
func (h *Handler) StopWorkspace(c *gin.Context) {
	if _, err := h.store.Workspaces().Stop(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
