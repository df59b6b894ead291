package che

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const (
	apiWorkspacePath = "/workspace"

	DefaultPollInterval = 10 * time.Second
	DefaultStartTimeout = 240 * time.Second
	DefaultStopTimeout  = 120 * time.Second
)

// WorkspaceClient issues workspace calls against the platform API. It keeps
// no state beyond the api and its polling settings.
type WorkspaceClient struct {
	api          *ServiceApi
	pollInterval time.Duration
	startTimeout time.Duration
	stopTimeout  time.Duration
}

type WorkspaceClientOption func(*WorkspaceClient)

func WithPollInterval(d time.Duration) WorkspaceClientOption {
	return func(c *WorkspaceClient) {
		c.pollInterval = d
	}
}

func WithStartTimeout(d time.Duration) WorkspaceClientOption {
	return func(c *WorkspaceClient) {
		c.startTimeout = d
	}
}

func WithStopTimeout(d time.Duration) WorkspaceClientOption {
	return func(c *WorkspaceClient) {
		c.stopTimeout = d
	}
}

func NewWorkspaceClient(api *ServiceApi, opts ...WorkspaceClientOption) *WorkspaceClient {
	c := &WorkspaceClient{
		api:          api,
		pollInterval: DefaultPollInterval,
		startTimeout: DefaultStartTimeout,
		stopTimeout:  DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForToken returns a client with the same settings authenticating with token.
func (c *WorkspaceClient) ForToken(token string) *WorkspaceClient {
	cc := *c
	cc.api = c.api.WithToken(token)
	return &cc
}

// CreateWorkspace sets the name and default environment on config, applies the
// memory limit and creates the workspace.
// POST /workspace
func (c *WorkspaceClient) CreateWorkspace(ctx context.Context, name string, memory int, unit models.MemoryUnit, config models.WorkspaceConfig) (*models.Workspace, error) {
	body := config.Prepare(name, models.ToBytes(memory, unit))

	resp, err := c.api.Do(ctx, http.MethodPost, apiWorkspacePath, nil, body)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, resp.Err()
	}

	ws, err := decodeWorkspace(resp)
	if err != nil {
		return nil, err
	}

	zap.S().Named("workspace_client").Infow("workspace created", "name", name, "id", ws.ID)

	return ws, nil
}

// Start sends the start request and waits until the workspace is RUNNING.
// POST /workspace/{id}/runtime
func (c *WorkspaceClient) Start(ctx context.Context, id, name, owner string) error {
	path, err := runtimePath(id)
	if err != nil {
		return err
	}
	query := url.Values{}
	if err := addQueryParam(query, "environment", name); err != nil {
		return err
	}

	resp, err := c.api.Do(ctx, http.MethodPost, path, query, nil)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return resp.Err()
	}

	zap.S().Named("workspace_client").Infow("workspace start requested", "name", name, "id", id, "owner", owner)

	if _, err := c.WaitStatus(ctx, id, models.WorkspaceStatusRunning, c.startTimeout); err != nil {
		return fmt.Errorf("failed to start workspace %q of %q: %w", name, owner, err)
	}
	return nil
}

// Stop sends the stop request and waits until the workspace is STOPPED.
// DELETE /workspace/{id}/runtime
func (c *WorkspaceClient) Stop(ctx context.Context, id string) error {
	path, err := runtimePath(id)
	if err != nil {
		return err
	}

	resp, err := c.api.Do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return resp.Err()
	}

	_, err = c.WaitStatus(ctx, id, models.WorkspaceStatusStopped, c.stopTimeout)
	return err
}

// Get returns the workspace with the given id.
// GET /workspace/{id}
func (c *WorkspaceClient) Get(ctx context.Context, id string) (*models.Workspace, error) {
	path, err := workspacePath(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, srvErrors.NewResourceNotFoundError("workspace", id)
	case !resp.Success():
		return nil, resp.Err()
	}

	return decodeWorkspace(resp)
}

// GetByName returns the workspace name owned by owner.
// GET /workspace?name=&owner=
func (c *WorkspaceClient) GetByName(ctx context.Context, name, owner string) (*models.Workspace, error) {
	query := url.Values{}
	if err := addQueryParam(query, "name", name); err != nil {
		return nil, err
	}
	if err := addQueryParam(query, "owner", owner); err != nil {
		return nil, err
	}

	resp, err := c.api.Do(ctx, http.MethodGet, apiWorkspacePath, query, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, srvErrors.NewWorkspaceNotFoundError(name, owner)
	case !resp.Success():
		return nil, resp.Err()
	}

	var dtos []v1.WorkspaceDto
	if err := resp.Decode(&dtos); err != nil {
		return nil, err
	}
	for _, dto := range dtos {
		if dto.Config.Name == name && dto.Namespace == owner {
			ws, err := v1.NewWorkspaceFromDto(dto)
			if err != nil {
				return nil, srvErrors.NewMalformedResponseError(resp.Method, resp.URL, resp.StatusCode, err)
			}
			return ws, nil
		}
	}
	return nil, srvErrors.NewWorkspaceNotFoundError(name, owner)
}

func (c *WorkspaceClient) Exists(ctx context.Context, name, owner string) (bool, error) {
	_, err := c.GetByName(ctx, name, owner)
	switch {
	case err == nil:
		return true, nil
	case srvErrors.IsResourceNotFoundError(err):
		return false, nil
	default:
		return false, err
	}
}

// Delete stops the workspace if needed and removes it. An absent workspace is
// not an error.
// DELETE /workspace/{id}
func (c *WorkspaceClient) Delete(ctx context.Context, name, owner string) error {
	ws, err := c.GetByName(ctx, name, owner)
	if err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			zap.S().Named("workspace_client").Debugw("workspace already gone", "name", name, "owner", owner)
			return nil
		}
		return err
	}

	if ws.Status != models.WorkspaceStatusStopped {
		if err := c.Stop(ctx, ws.ID); err != nil {
			return fmt.Errorf("failed to stop workspace %q before removal: %w", name, err)
		}
	}

	path, err := workspacePath(ws.ID)
	if err != nil {
		return err
	}
	resp, err := c.api.Do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if !resp.Success() && resp.StatusCode != http.StatusNotFound {
		return resp.Err()
	}

	zap.S().Named("workspace_client").Infow("workspace removed", "name", name, "id", ws.ID, "owner", owner)
	return nil
}

// WaitStatus polls the workspace until it reaches want or timeout elapses.
// A workspace in ERROR while waiting for another status fails immediately.
func (c *WorkspaceClient) WaitStatus(ctx context.Context, id string, want models.WorkspaceStatus, timeout time.Duration) (*models.Workspace, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		last      error
		permanent bool
	)
	operation := func() (*models.Workspace, error) {
		ws, err := c.Get(pollCtx, id)
		if err != nil {
			if srvErrors.IsResourceNotFoundError(err) {
				permanent = true
				return nil, backoff.Permanent(err)
			}
			last = err
			return nil, err
		}
		if ws.Status == want {
			return ws, nil
		}
		if ws.Status == models.WorkspaceStatusError {
			permanent = true
			path, _ := workspacePath(id)
			return nil, backoff.Permanent(srvErrors.NewRemoteApiErrorWithCause(http.MethodGet, c.api.BaseURL()+path,
				fmt.Errorf("workspace is in %s status while waiting for %s", ws.Status, want)))
		}
		last = fmt.Errorf("workspace %s status is %s", id, ws.Status)
		return nil, last
	}

	ws, err := backoff.Retry(pollCtx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.pollInterval)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err == nil {
		return ws, nil
	}
	if permanent {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if last == nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, srvErrors.NewTimeoutError(fmt.Sprintf("waiting for workspace %s status %s", id, want), timeout, last)
}

func decodeWorkspace(resp *Response) (*models.Workspace, error) {
	var dto v1.WorkspaceDto
	if err := resp.Decode(&dto); err != nil {
		return nil, err
	}
	ws, err := v1.NewWorkspaceFromDto(dto)
	if err != nil {
		return nil, srvErrors.NewMalformedResponseError(resp.Method, resp.URL, resp.StatusCode, err)
	}
	return ws, nil
}

func workspacePath(id string) (string, error) {
	p, err := pathParam("id", id)
	if err != nil {
		return "", err
	}
	return apiWorkspacePath + "/" + p, nil
}

func runtimePath(id string) (string, error) {
	p, err := workspacePath(id)
	if err != nil {
		return "", err
	}
	return p + "/runtime", nil
}
