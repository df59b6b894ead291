package store

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

// BrokenImageSuffix marks a recipe location that never starts: a workspace
// whose default environment uses it goes to ERROR instead of RUNNING.
const BrokenImageSuffix = ":broken"

type workspaceRecord struct {
	dto v1.WorkspaceDto
	// status reads left before a transition completes
	pending int
	target  models.WorkspaceStatus
}

// WorkspaceStore keeps workspaces and drives their status transitions.
// Transitions complete after startDelay reads of the workspace.
type WorkspaceStore struct {
	mu         sync.Mutex
	records    map[string]*workspaceRecord
	startDelay int
}

func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{records: make(map[string]*workspaceRecord)}
}

// Create stores a new STOPPED workspace owned by namespace.
func (s *WorkspaceStore) Create(namespace string, config models.WorkspaceConfig) (v1.WorkspaceDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.dto.Namespace == namespace && r.dto.Config.Name == config.Name {
			return v1.WorkspaceDto{}, srvErrors.NewDuplicateResourceError("workspace", models.WorkspaceKey{Name: config.Name, Owner: namespace}.String())
		}
	}

	dto := v1.WorkspaceDto{
		Id:        "workspace" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Namespace: namespace,
		Status:    string(models.WorkspaceStatusStopped),
		Config:    config,
		Attributes: map[string]string{
			v1.CreatedAttribute: strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	}
	s.records[dto.Id] = &workspaceRecord{dto: dto}
	return dto, nil
}

// Get returns the workspace and counts the read towards a pending transition.
func (s *WorkspaceStore) Get(id string) (v1.WorkspaceDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return v1.WorkspaceDto{}, srvErrors.NewResourceNotFoundError("workspace", id)
	}
	if r.target != "" {
		r.pending--
		if r.pending <= 0 {
			s.settle(r)
		}
	}
	return r.dto, nil
}

// Lookup returns the workspace without counting a status read.
func (s *WorkspaceStore) Lookup(id string) (v1.WorkspaceDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return v1.WorkspaceDto{}, srvErrors.NewResourceNotFoundError("workspace", id)
	}
	return r.dto, nil
}

// Find returns the workspaces matching name and namespace. Empty filters
// match everything. It does not count as a status read.
func (s *WorkspaceStore) Find(name, namespace string) []v1.WorkspaceDto {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []v1.WorkspaceDto{}
	for _, r := range s.records {
		if name != "" && r.dto.Config.Name != name {
			continue
		}
		if namespace != "" && r.dto.Namespace != namespace {
			continue
		}
		out = append(out, r.dto)
	}
	return out
}

// Start moves a STOPPED workspace to STARTING.
func (s *WorkspaceStore) Start(id, environment string) (v1.WorkspaceDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return v1.WorkspaceDto{}, srvErrors.NewResourceNotFoundError("workspace", id)
	}
	if r.dto.Status != string(models.WorkspaceStatusStopped) {
		return r.dto, nil
	}
	if environment == "" {
		environment = r.dto.Config.DefaultEnv
	}

	target := models.WorkspaceStatusRunning
	if env, ok := r.dto.Config.Environments[environment]; !ok || strings.HasSuffix(env.Recipe.Location, BrokenImageSuffix) {
		target = models.WorkspaceStatusError
	}

	r.dto.Status = string(models.WorkspaceStatusStarting)
	r.dto.Runtime = &v1.RuntimeDto{ActiveEnv: environment}
	s.transition(r, target)
	return r.dto, nil
}

// Stop moves a running or failed workspace to STOPPING.
func (s *WorkspaceStore) Stop(id string) (v1.WorkspaceDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return v1.WorkspaceDto{}, srvErrors.NewResourceNotFoundError("workspace", id)
	}
	if r.dto.Status == string(models.WorkspaceStatusStopped) {
		return r.dto, nil
	}

	r.dto.Status = string(models.WorkspaceStatusStopping)
	s.transition(r, models.WorkspaceStatusStopped)
	return r.dto, nil
}

func (s *WorkspaceStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return srvErrors.NewResourceNotFoundError("workspace", id)
	}
	delete(s.records, id)
	return nil
}

func (s *WorkspaceStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *WorkspaceStore) transition(r *workspaceRecord, target models.WorkspaceStatus) {
	r.target = target
	r.pending = s.startDelay
	if r.pending <= 0 {
		s.settle(r)
	}
}

func (s *WorkspaceStore) settle(r *workspaceRecord) {
	r.dto.Status = string(r.target)
	if r.target == models.WorkspaceStatusStopped {
		r.dto.Runtime = nil
	}
	r.target = ""
	r.pending = 0
}
