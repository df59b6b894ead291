package v1

import (
	"strconv"
	"time"

	"github.com/eclipse-che/che-e2e-harness/internal/models"
)

// NewWorkspaceFromDto converts an API workspace to a models.Workspace.
func NewWorkspaceFromDto(dto WorkspaceDto) (*models.Workspace, error) {
	status, err := models.ParseWorkspaceStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	ws := &models.Workspace{
		ID:     dto.Id,
		Name:   dto.Config.Name,
		Owner:  dto.Namespace,
		Status: status,
		Config: dto.Config,
	}

	if created, ok := dto.Attributes[CreatedAttribute]; ok {
		if ms, err := strconv.ParseInt(created, 10, 64); err == nil {
			ws.CreatedAt = time.UnixMilli(ms)
		}
	}

	if env, ok := dto.Config.Environments[dto.Config.DefaultEnv]; ok {
		for _, m := range env.Machines {
			if v, err := strconv.ParseInt(m.Attributes[models.MemoryLimitAttribute], 10, 64); err == nil {
				ws.MemoryBytes += v
			}
		}
	}

	return ws, nil
}

// NewUserFromDto converts an API user to a models.TestUser of the given kind.
func NewUserFromDto(dto UserDto, kind models.UserKind) *models.TestUser {
	return &models.TestUser{
		ID:       dto.Id,
		Name:     dto.Name,
		Email:    dto.Email,
		Password: dto.Password,
		Kind:     kind,
	}
}
