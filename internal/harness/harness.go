// Package harness wires the workspace lifecycle services from a
// configuration and exposes the hooks a test suite calls around its specs.
package harness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/services"
	"github.com/eclipse-che/che-e2e-harness/internal/templates"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
	"github.com/eclipse-che/che-e2e-harness/pkg/process"
)

const (
	logsDir = "logs"
	// time allowed for a creation request on top of its start
	createGrace = time.Minute
)

var errNotSetUp = errors.New("harness is not set up: call Setup first")

// Harness holds the services shared by all specs of a suite run.
type Harness struct {
	cfg *config.Configuration

	Workspaces *services.WorkspaceProvider
	Logs       *services.LogReader
	Admin      *services.AdminUserProvider
	Users      *services.UserProvider
	Templates  *templates.Loader

	api    *che.ServiceApi
	client *che.WorkspaceClient
	admin  *models.TestUser
}

type options struct {
	runner     process.Runner
	httpClient *http.Client
	logSource  services.LogSource
}

type Option func(*options)

// WithRunner replaces the shell runner used for log copies.
func WithRunner(r process.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogSource replaces the log source picked from the infrastructure.
func WithLogSource(s services.LogSource) Option {
	return func(o *options) {
		o.logSource = s
	}
}

// New builds the harness. It fails when the admin credentials are missing.
func New(cfg *config.Configuration, opts ...Option) (*Harness, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = process.NewShellRunner(cfg.Timeouts.Process)
	}
	if o.logSource == nil {
		o.logSource = services.NewLogSource(cfg, o.runner)
	}

	var apiOpts []che.ServiceApiOption
	if o.httpClient != nil {
		apiOpts = append(apiOpts, che.WithHTTPClient(o.httpClient))
	}
	api := che.NewServiceApi(cfg.Platform.APIURL, apiOpts...)
	tokens := che.NewTokenClient(cfg.Platform.AuthURL, apiOpts...)

	admin, err := services.NewAdminUserProvider(tokens, cfg.Admin)
	if err != nil {
		return nil, err
	}

	loader := templates.NewLoader(cfg.Platform.Infrastructure)
	client := che.NewWorkspaceClient(api,
		che.WithPollInterval(cfg.Timeouts.PollInterval),
		che.WithStartTimeout(cfg.Timeouts.StartWorkspace),
		che.WithStopTimeout(cfg.Timeouts.StopWorkspace),
	)

	return &Harness{
		cfg: cfg,
		Workspaces: services.NewWorkspaceProvider(client, loader,
			services.WithDefaultMemoryGB(cfg.Provider.DefaultMemoryGB),
			services.WithDeleteTimeout(cfg.Timeouts.DeleteWorkspace),
			services.WithCreateTimeout(cfg.Timeouts.StartWorkspace+createGrace),
			services.WithShutdownWorkers(cfg.Provider.ShutdownWorkers),
			services.WithLockDir(cfg.Provider.LockDir),
		),
		Logs:      services.NewLogReader(o.logSource, o.runner),
		Admin:     admin,
		Users:     services.NewUserProvider(admin, tokens, api),
		Templates: loader,
		api:       api,
		client:    client,
	}, nil
}

// Setup resolves the admin user and sets its profile names.
func (h *Harness) Setup(ctx context.Context) error {
	admin, err := h.Admin.Get(ctx)
	if err != nil {
		return err
	}

	profile := che.NewProfileClient(h.api.WithToken(admin.Token))
	if err := profile.SetUserNames(ctx, admin.Name, "Che"); err != nil {
		return fmt.Errorf("failed to update admin profile: %w", err)
	}

	h.admin = admin
	zap.S().Named("harness").Infow("harness ready", "api_url", h.cfg.Platform.APIURL, "infrastructure", h.cfg.Platform.Infrastructure)
	return nil
}

// AdminUser returns the admin resolved by Setup.
func (h *Harness) AdminUser() *models.TestUser {
	return h.admin
}

// WorkspaceClient returns a workspace client authenticated as the admin.
// It fails until Setup has succeeded.
func (h *Harness) WorkspaceClient() (*che.WorkspaceClient, error) {
	if h.admin == nil {
		return nil, errNotSetUp
	}
	return h.client.ForToken(h.admin.Token), nil
}

// CreateWorkspace creates a workspace for the admin user, or req.Owner when
// set.
func (h *Harness) CreateWorkspace(ctx context.Context, req services.CreateRequest) (*models.Workspace, error) {
	if req.Owner == nil {
		req.Owner = h.admin
	}
	return h.Workspaces.CreateWorkspace(ctx, req)
}

// LogsDir is where OnFailure stores workspace logs.
func (h *Harness) LogsDir() string {
	return filepath.Join(h.cfg.Logs.ReportDir, logsDir)
}

// OnFailure stores the logs of the given workspaces. It never fails.
func (h *Harness) OnFailure(ctx context.Context, workspaces ...*models.Workspace) {
	for _, ws := range workspaces {
		h.Logs.StoreWorkspace(ctx, ws, h.LogsDir(), h.cfg.Logs.SuppressWarnings)
	}
}

// Teardown deletes the workspaces, then the users created during the run.
// Every step is attempted; failures are combined.
func (h *Harness) Teardown(ctx context.Context) error {
	var errs error
	if err := h.Workspaces.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := h.Users.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		zap.S().Named("harness").Warnw("teardown incomplete", "error", errs)
	}
	return errs
}
