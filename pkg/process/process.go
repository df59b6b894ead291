package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const DefaultTimeout = 2 * time.Minute

// Runner executes a host shell command and returns its captured stdout.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// ShellRunner runs commands through "sh -c" with a bounded timeout. No retry
// is attempted; callers decide their own retry policy.
type ShellRunner struct {
	shell   string
	timeout time.Duration
}

func NewShellRunner(timeout time.Duration) *ShellRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ShellRunner{shell: "sh", timeout: timeout}
}

func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	zap.S().Named("process").Debugw("running command", "command", command)

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	return "", srvErrors.NewProcessExecutionError(command, exitCode, strings.TrimSpace(stderr.String()), err)
}
