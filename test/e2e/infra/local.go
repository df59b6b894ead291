package infra

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eclipse-che/che-e2e-harness/internal/server"
)

// LocalInfraManager runs the fake platform in-process. Workspaces become
// RUNNING after startDelay status reads.
type LocalInfraManager struct {
	addr       string
	startDelay int

	platform *server.FakePlatform
	cancel   context.CancelFunc
}

func NewLocalInfraManager(addr string, startDelay int) *LocalInfraManager {
	return &LocalInfraManager{addr: addr, startDelay: startDelay}
}

func (l *LocalInfraManager) StartPlatform(ctx context.Context) error {
	p, err := server.NewFakePlatform(l.addr, l.startDelay)
	if err != nil {
		return fmt.Errorf("starting fake platform: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.StartBackground(runCtx)

	l.platform = p
	l.cancel = cancel
	zap.S().Infof("fake platform started on %s", p.URL())
	return nil
}

func (l *LocalInfraManager) StopPlatform() error {
	if l.platform == nil {
		return nil
	}
	l.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.platform.Stop(ctx)
}

func (l *LocalInfraManager) APIURL() string {
	return l.platform.APIURL()
}

func (l *LocalInfraManager) AuthURL() string {
	return l.platform.AuthURL()
}

// GenerateToken signs a token directly; the local issuer trusts the caller.
func (l *LocalInfraManager) GenerateToken(_ context.Context, username, _, email string) (string, error) {
	if l.platform == nil {
		return "", fmt.Errorf("fake platform not started")
	}
	return l.platform.GenerateToken(username, email)
}
