package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/eclipse-che/che-e2e-harness/internal/models"
	"github.com/eclipse-che/che-e2e-harness/pkg/process"
)

const (
	DockerWorkspaceIDLabel    = "org.eclipse.che.workspace.id"
	OpenShiftWorkspaceIDLabel = "che.workspace_id"
)

var workspaceLogInfos = []models.LogInfo{
	{Name: "ws-agent", Location: "/home/user/che/ws-agent/logs"},
	{Name: "exec-agent", Location: "/home/user/che/exec-agent/logs"},
	{Name: "bootstrapper", Location: "/tmp/bootstrapper"},
}

// DockerLogSource reads logs with docker cp from the dev machine container
// of the workspace. Logs are readable only when the platform runs on this
// host.
type DockerLogSource struct {
	docker *process.Docker

	once  sync.Once
	local bool
}

func NewDockerLogSource(docker *process.Docker) *DockerLogSource {
	return &DockerLogSource{docker: docker}
}

func (s *DockerLogSource) LogInfos() []models.LogInfo {
	return workspaceLogInfos
}

func (s *DockerLogSource) CanReadLogs(ctx context.Context) bool {
	s.once.Do(func() {
		s.local = s.docker.IsPlatformRunLocally(ctx)
	})
	return s.local
}

func (s *DockerLogSource) ReadLogsCommand(workspaceID, dst, src string) string {
	container := fmt.Sprintf("$(%s | head -n 1)", process.ContainerByLabelCommand(DockerWorkspaceIDLabel, workspaceID))
	return process.CopyFromContainerCommand(container, src, dst)
}

// OpenShiftLogSource reads logs with oc rsync from the workspace pod.
type OpenShiftLogSource struct {
	namespace string
}

func NewOpenShiftLogSource(namespace string) *OpenShiftLogSource {
	return &OpenShiftLogSource{namespace: namespace}
}

func (s *OpenShiftLogSource) LogInfos() []models.LogInfo {
	return workspaceLogInfos
}

func (s *OpenShiftLogSource) CanReadLogs(context.Context) bool {
	return true
}

func (s *OpenShiftLogSource) ReadLogsCommand(workspaceID, dst, src string) string {
	pod := fmt.Sprintf("$(oc get pod -n %s -l %s=%s -o name | head -n 1 | sed 's|^pod/||')", s.namespace, OpenShiftWorkspaceIDLabel, workspaceID)
	return fmt.Sprintf("mkdir -p %s && oc rsync -n %s %s:%s %s", dst, s.namespace, pod, src, dst)
}

// DisabledLogSource is used where workspace logs can't be reached.
type DisabledLogSource struct{}

func (DisabledLogSource) LogInfos() []models.LogInfo {
	return nil
}

func (DisabledLogSource) CanReadLogs(context.Context) bool {
	return false
}

func (DisabledLogSource) ReadLogsCommand(string, string, string) string {
	return ""
}
