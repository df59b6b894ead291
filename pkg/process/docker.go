package process

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const DefaultIPImage = "eclipse/che-ip:nightly"

// Docker builds docker CLI commands and runs them through a Runner.
type Docker struct {
	runner       Runner
	platformHost string
	ipImage      string
}

func NewDocker(runner Runner, platformHost string) *Docker {
	return &Docker{runner: runner, platformHost: platformHost, ipImage: DefaultIPImage}
}

// WithIPImage returns a copy using image to resolve the host IP.
func (d *Docker) WithIPImage(image string) *Docker {
	c := *d
	c.ipImage = image
	return &c
}

// IsPlatformRunLocally reports whether this host has the same IP as the
// configured platform host.
func (d *Docker) IsPlatformRunLocally(ctx context.Context) bool {
	ip, err := d.runner.Run(ctx, fmt.Sprintf("docker run --rm --net host %s", d.ipImage))
	if err != nil {
		zap.S().Named("docker").Warnw("can't check if platform runs locally", "error", err)
		return false
	}
	return ip != "" && strings.Contains(d.platformHost, ip)
}

func (d *Docker) CopyFromContainer(ctx context.Context, containerID, pathInsideContainer, pathOnHost string) error {
	_, err := d.runner.Run(ctx, CopyFromContainerCommand(containerID, pathInsideContainer, pathOnHost))
	return err
}

func (d *Docker) CopyIntoContainer(ctx context.Context, containerID, pathOnHost, pathInsideContainer string) error {
	_, err := d.runner.Run(ctx, fmt.Sprintf("docker cp %s %s:%s", pathOnHost, containerID, pathInsideContainer))
	return err
}

// DeletePath removes path inside the container.
func (d *Docker) DeletePath(ctx context.Context, containerID, path string) error {
	_, err := d.runner.Run(ctx, fmt.Sprintf("docker exec -i %s sh -c 'rm -fr %s'", containerID, path))
	return err
}

// FindContainerByIP returns the id of the container whose address on network
// matches ip, among containers whose name matches namePattern.
func (d *Docker) FindContainerByIP(ctx context.Context, namePattern, network, ip string) (string, error) {
	cmd := fmt.Sprintf(
		"docker ps -q --filter='name=%s' | xargs docker inspect --format '{{ .Id }} {{ .NetworkSettings.Networks.%s.IPAddress }}' | grep %s | awk 'NR>0 {print $1;}'",
		namePattern, network, ip,
	)
	return d.runner.Run(ctx, cmd)
}

// ContainerByLabel returns the id of the first container labelled key=value.
func (d *Docker) ContainerByLabel(ctx context.Context, key, value string) (string, error) {
	out, err := d.runner.Run(ctx, ContainerByLabelCommand(key, value))
	if err != nil {
		return "", err
	}
	if id, _, _ := strings.Cut(out, "\n"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no container labelled %s=%s", key, value)
}

func CopyFromContainerCommand(containerID, pathInsideContainer, pathOnHost string) string {
	return fmt.Sprintf("docker cp %s:%s %s", containerID, pathInsideContainer, pathOnHost)
}

func ContainerByLabelCommand(key, value string) string {
	return fmt.Sprintf("docker ps -q --filter label=%s=%s", key, value)
}
