package v1

import "github.com/eclipse-che/che-e2e-harness/internal/models"

// CreatedAttribute holds the creation time of a workspace in epoch millis.
const CreatedAttribute = "created"

// WorkspaceDto is the workspace representation exchanged with the platform API.
type WorkspaceDto struct {
	Id         string                 `json:"id"`
	Namespace  string                 `json:"namespace"`
	Status     string                 `json:"status"`
	Config     models.WorkspaceConfig `json:"config"`
	Attributes map[string]string      `json:"attributes,omitempty"`
	Runtime    *RuntimeDto            `json:"runtime,omitempty"`
}

type RuntimeDto struct {
	ActiveEnv string                `json:"activeEnv"`
	Machines  map[string]MachineDto `json:"machines,omitempty"`
}

type MachineDto struct {
	Status     string            `json:"status"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type UserDto struct {
	Id       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
