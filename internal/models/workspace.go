package models

import (
	"fmt"
	"time"
)

type WorkspaceStatus string

const (
	WorkspaceStatusStarting WorkspaceStatus = "STARTING"
	WorkspaceStatusRunning  WorkspaceStatus = "RUNNING"
	WorkspaceStatusStopping WorkspaceStatus = "STOPPING"
	WorkspaceStatusStopped  WorkspaceStatus = "STOPPED"
	WorkspaceStatusError    WorkspaceStatus = "ERROR"
)

func ParseWorkspaceStatus(s string) (WorkspaceStatus, error) {
	switch WorkspaceStatus(s) {
	case WorkspaceStatusStarting, WorkspaceStatusRunning, WorkspaceStatusStopping, WorkspaceStatusStopped, WorkspaceStatusError:
		return WorkspaceStatus(s), nil
	default:
		return "", fmt.Errorf("invalid workspace status: %s", s)
	}
}

// MemoryLimitAttribute is the machine attribute holding the memory limit in bytes.
const MemoryLimitAttribute = "memoryLimitBytes"

// Workspace is the client-side view of a workspace on the platform.
type Workspace struct {
	ID          string
	Name        string
	Owner       string
	Status      WorkspaceStatus
	MemoryBytes int64
	CreatedAt   time.Time
	Config      WorkspaceConfig
}

// WorkspaceKey identifies a workspace in the provider cache.
type WorkspaceKey struct {
	Name  string
	Owner string
}

func (k WorkspaceKey) String() string {
	return k.Owner + "/" + k.Name
}

func (w *Workspace) Key() WorkspaceKey {
	return WorkspaceKey{Name: w.Name, Owner: w.Owner}
}

type WorkspaceConfig struct {
	Name         string                 `json:"name" yaml:"name"`
	DefaultEnv   string                 `json:"defaultEnv" yaml:"defaultEnv"`
	Environments map[string]Environment `json:"environments,omitempty" yaml:"environments,omitempty"`
	Projects     []map[string]any       `json:"projects,omitempty" yaml:"projects,omitempty"`
	Commands     []map[string]any       `json:"commands,omitempty" yaml:"commands,omitempty"`
	Attributes   map[string]string      `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

type Environment struct {
	Machines map[string]Machine `json:"machines,omitempty" yaml:"machines,omitempty"`
	Recipe   Recipe             `json:"recipe" yaml:"recipe"`
}

type Machine struct {
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Installers []string          `json:"installers,omitempty" yaml:"installers,omitempty"`
	Servers    map[string]any    `json:"servers,omitempty" yaml:"servers,omitempty"`
}

type Recipe struct {
	Type        string `json:"type" yaml:"type"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Clone returns a deep enough copy for Prepare to mutate environments and
// machine attributes without touching the original.
func (c WorkspaceConfig) Clone() WorkspaceConfig {
	out := c
	out.Attributes = cloneStrings(c.Attributes)
	if c.Environments != nil {
		out.Environments = make(map[string]Environment, len(c.Environments))
		for name, env := range c.Environments {
			machines := make(map[string]Machine, len(env.Machines))
			for mName, m := range env.Machines {
				m.Attributes = cloneStrings(m.Attributes)
				machines[mName] = m
			}
			env.Machines = machines
			out.Environments[name] = env
		}
	}
	return out
}

// Prepare renames the config and its default environment to name and stamps
// memoryBytes on every machine of that environment.
func (c WorkspaceConfig) Prepare(name string, memoryBytes int64) WorkspaceConfig {
	out := c.Clone()
	if out.Environments == nil {
		out.Environments = map[string]Environment{}
	}

	env, ok := out.Environments[out.DefaultEnv]
	if !ok && len(out.Environments) == 1 {
		for k, v := range out.Environments {
			env, ok = v, true
			delete(out.Environments, k)
		}
	} else if ok {
		delete(out.Environments, out.DefaultEnv)
	}

	if memoryBytes > 0 {
		for mName, m := range env.Machines {
			if m.Attributes == nil {
				m.Attributes = map[string]string{}
			}
			m.Attributes[MemoryLimitAttribute] = fmt.Sprintf("%d", memoryBytes)
			env.Machines[mName] = m
		}
	}

	if ok {
		out.Environments[name] = env
	}
	out.Name = name
	out.DefaultEnv = name
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
