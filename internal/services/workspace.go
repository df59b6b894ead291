package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/internal/templates"
	"github.com/eclipse-che/che-e2e-harness/internal/util"
	"github.com/eclipse-che/che-e2e-harness/pkg/che"
	"github.com/eclipse-che/che-e2e-harness/pkg/scheduler"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const (
	DefaultMemoryGB        = 2
	DefaultDeleteTimeout   = 180 * time.Second
	DefaultCreateTimeout   = 5 * time.Minute
	DefaultShutdownWorkers = 4

	lockRetryDelay = 100 * time.Millisecond
	// extra time given to Shutdown over the deletion timeouts
	shutdownGrace = 5 * time.Second
)

// CreateRequest describes a workspace to create for a test.
type CreateRequest struct {
	Owner *models.TestUser
	// MemoryGB defaults to the provider default when zero.
	MemoryGB int
	Template string
	Start    bool
	// Name defaults to workspace-<random>.
	Name string
}

type cachedWorkspace struct {
	ws    *models.Workspace
	owner *models.TestUser
}

// WorkspaceProvider creates, shares and finally deletes the workspaces used
// by tests. At most one workspace is created per (name, owner).
type WorkspaceProvider struct {
	client    *che.WorkspaceClient
	templates *templates.Loader

	defaultMemoryGB int
	deleteTimeout   time.Duration
	createTimeout   time.Duration
	workers         int
	lockDir         string

	group singleflight.Group

	mu    sync.Mutex
	cache map[models.WorkspaceKey]*models.Workspace
	// owned are the workspaces created here, deleted at Shutdown
	owned map[models.WorkspaceKey]*cachedWorkspace
}

type WorkspaceProviderOption func(*WorkspaceProvider)

func WithDefaultMemoryGB(gb int) WorkspaceProviderOption {
	return func(p *WorkspaceProvider) {
		p.defaultMemoryGB = gb
	}
}

func WithDeleteTimeout(d time.Duration) WorkspaceProviderOption {
	return func(p *WorkspaceProvider) {
		p.deleteTimeout = d
	}
}

// WithCreateTimeout bounds one shared creation, start included. A caller
// giving up early does not abort the creation other callers wait for.
func WithCreateTimeout(d time.Duration) WorkspaceProviderOption {
	return func(p *WorkspaceProvider) {
		p.createTimeout = d
	}
}

func WithShutdownWorkers(n int) WorkspaceProviderOption {
	return func(p *WorkspaceProvider) {
		p.workers = n
	}
}

// WithLockDir serializes creation across processes with lock files in dir.
func WithLockDir(dir string) WorkspaceProviderOption {
	return func(p *WorkspaceProvider) {
		p.lockDir = dir
	}
}

func NewWorkspaceProvider(client *che.WorkspaceClient, loader *templates.Loader, opts ...WorkspaceProviderOption) *WorkspaceProvider {
	p := &WorkspaceProvider{
		client:          client,
		templates:       loader,
		defaultMemoryGB: DefaultMemoryGB,
		deleteTimeout:   DefaultDeleteTimeout,
		createTimeout:   DefaultCreateTimeout,
		workers:         DefaultShutdownWorkers,
		cache:           make(map[models.WorkspaceKey]*models.Workspace),
		owned:           make(map[models.WorkspaceKey]*cachedWorkspace),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateWorkspace returns the workspace for (req.Name, req.Owner), creating
// it on the first request. Concurrent requests for the same key wait for a
// single creation and share its result.
func (p *WorkspaceProvider) CreateWorkspace(ctx context.Context, req CreateRequest) (*models.Workspace, error) {
	if req.Owner == nil {
		return nil, errors.New("workspace owner is required")
	}
	if req.Name == "" {
		req.Name = util.GenerateName("workspace-", 6)
	}
	if req.MemoryGB <= 0 {
		req.MemoryGB = p.defaultMemoryGB
	}
	if req.Template == "" {
		req.Template = templates.Default
	}

	key := models.WorkspaceKey{Name: req.Name, Owner: req.Owner.Name}
	if ws, ok := p.cached(key); ok {
		return ws, nil
	}

	ch := p.group.DoChan("create/"+key.String(), func() (any, error) {
		if ws, ok := p.cached(key); ok {
			return ws, nil
		}
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.createTimeout)
		defer cancel()
		return p.create(flightCtx, key, req)
	})
	return await(ctx, ch)
}

// GetWorkspace returns the workspace for (name, owner) from the cache, or
// looks it up on the platform. Looked up workspaces are not deleted at
// Shutdown.
func (p *WorkspaceProvider) GetWorkspace(ctx context.Context, name string, owner *models.TestUser) (*models.Workspace, error) {
	if owner == nil {
		return nil, errors.New("workspace owner is required")
	}

	key := models.WorkspaceKey{Name: name, Owner: owner.Name}
	if ws, ok := p.cached(key); ok {
		return ws, nil
	}

	ch := p.group.DoChan("get/"+key.String(), func() (any, error) {
		if ws, ok := p.cached(key); ok {
			return ws, nil
		}
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.createTimeout)
		defer cancel()
		ws, err := p.client.ForToken(owner.Token).GetByName(flightCtx, name, owner.Name)
		if err != nil {
			return nil, err
		}
		return p.remember(key, ws, nil), nil
	})
	return await(ctx, ch)
}

// await returns the shared result, or ctx's error when this caller stops
// waiting first. The flight keeps running for the others.
func await(ctx context.Context, ch <-chan singleflight.Result) (*models.Workspace, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.Workspace), nil
	}
}

// Release deletes a workspace created here before Shutdown and forgets it.
// Workspaces that were only looked up are forgotten, not deleted.
func (p *WorkspaceProvider) Release(ctx context.Context, name string, owner *models.TestUser) error {
	if owner == nil {
		return errors.New("workspace owner is required")
	}
	key := models.WorkspaceKey{Name: name, Owner: owner.Name}

	p.mu.Lock()
	entry, owned := p.owned[key]
	delete(p.cache, key)
	delete(p.owned, key)
	p.mu.Unlock()

	if !owned {
		return nil
	}
	return p.delete(ctx, key, entry.owner)
}

// Shutdown deletes every workspace created here. Each deletion runs under
// its own timeout; a failed deletion is logged and does not stop the others.
func (p *WorkspaceProvider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	entries := make(map[models.WorkspaceKey]*cachedWorkspace, len(p.owned))
	for k, v := range p.owned {
		entries[k] = v
	}
	p.owned = make(map[models.WorkspaceKey]*cachedWorkspace)
	p.cache = make(map[models.WorkspaceKey]*models.Workspace)
	p.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	zap.S().Named("workspace_provider").Infow("deleting workspaces", "count", len(entries))

	sched := scheduler.NewScheduler[struct{}](p.workers)
	defer sched.Close()

	// the deletion timeout starts once a worker picks the entry up
	futures := make(map[models.WorkspaceKey]*scheduler.Future[scheduler.Result[struct{}]], len(entries))
	for key, entry := range entries {
		owner := entry.owner
		futures[key] = sched.AddWork(key.String(), func(ctx context.Context) (struct{}, error) {
			deleteCtx, cancel := context.WithTimeout(ctx, p.deleteTimeout)
			defer cancel()
			return struct{}{}, p.delete(deleteCtx, key, owner)
		})
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.shutdownBound(len(entries)))
	defer cancel()

	var errs error
	for key, future := range futures {
		result, err := future.Wait(waitCtx)
		if err == nil {
			err = result.Err
		}
		if err != nil {
			zap.S().Named("workspace_provider").Warnw("failed to delete workspace", "name", key.Name, "owner", key.Owner, "id", entries[key].ws.ID, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("workspace %s: %w", key, err))
		}
	}
	return errs
}

func (p *WorkspaceProvider) create(ctx context.Context, key models.WorkspaceKey, req CreateRequest) (*models.Workspace, error) {
	client := p.client.ForToken(req.Owner.Token)

	if p.lockDir != "" {
		unlock, err := p.lock(ctx, key)
		if err != nil {
			return nil, err
		}
		defer unlock()

		// another process may have created it while we waited
		ws, err := client.GetByName(ctx, key.Name, key.Owner)
		switch {
		case err == nil:
			zap.S().Named("workspace_provider").Infow("reusing workspace created elsewhere", "name", key.Name, "owner", key.Owner)
			return p.remember(key, ws, nil), nil
		case !srvErrors.IsResourceNotFoundError(err):
			return nil, err
		}
	}

	config, err := p.templates.Load(req.Template)
	if err != nil {
		return nil, err
	}

	ws, err := client.CreateWorkspace(ctx, key.Name, req.MemoryGB, models.MemoryUnitGB, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", key, err)
	}
	if ws.Owner == "" {
		ws.Owner = key.Owner
	}

	if req.Start {
		if err := client.Start(ctx, ws.ID, ws.Name, key.Owner); err != nil {
			// keep ownership so Shutdown still deletes it
			p.mu.Lock()
			p.owned[key] = &cachedWorkspace{ws: ws, owner: req.Owner}
			p.mu.Unlock()
			return nil, err
		}
		ws.Status = models.WorkspaceStatusRunning
	}

	zap.S().Named("workspace_provider").Infow("workspace ready", "name", key.Name, "owner", key.Owner, "id", ws.ID, "status", ws.Status)

	return p.remember(key, ws, req.Owner), nil
}

// remember caches ws under key; a non-nil owner marks it as created here,
// even when a lookup cached the same workspace first.
func (p *WorkspaceProvider) remember(key models.WorkspaceKey, ws *models.Workspace, owner *models.TestUser) *models.Workspace {
	p.mu.Lock()
	defer p.mu.Unlock()

	if owner != nil {
		p.owned[key] = &cachedWorkspace{ws: ws, owner: owner}
	}
	if cached, ok := p.cache[key]; ok {
		return cached
	}
	p.cache[key] = ws
	return ws
}

// shutdownBound is the longest Shutdown waits: one deletion timeout per
// round of workers, plus a grace period.
func (p *WorkspaceProvider) shutdownBound(entries int) time.Duration {
	workers := max(p.workers, 1)
	rounds := (entries + workers - 1) / workers
	return time.Duration(rounds)*p.deleteTimeout + shutdownGrace
}

func (p *WorkspaceProvider) cached(key models.WorkspaceKey) (*models.Workspace, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws, ok := p.cache[key]
	return ws, ok
}

func (p *WorkspaceProvider) delete(ctx context.Context, key models.WorkspaceKey, owner *models.TestUser) error {
	return p.client.ForToken(owner.Token).Delete(ctx, key.Name, key.Owner)
}

func (p *WorkspaceProvider) lock(ctx context.Context, key models.WorkspaceKey) (func(), error) {
	if err := os.MkdirAll(p.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %q: %w", p.lockDir, err)
	}

	lock := flock.New(filepath.Join(p.lockDir, fmt.Sprintf("%s_%s.lock", key.Owner, key.Name)))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock workspace %s: %w", key, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock workspace %s", key)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			zap.S().Named("workspace_provider").Debugw("failed to release workspace lock", "name", key.Name, "owner", key.Owner, "error", err)
		}
	}, nil
}
