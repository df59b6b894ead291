package test

import (
	"context"
	"strings"
	"sync"

	"github.com/eclipse-che/che-e2e-harness/pkg/process"
)

// Response is returned by MockRunner for commands containing Match.
type Response struct {
	Match  string
	Output string
	Err    error
	// Do runs before the response is returned, e.g. to create copied files.
	Do func(command string)
}

// MockRunner implements process.Runner for testing. It records every command
// and answers with the first matching Response; unmatched commands succeed
// with empty output.
type MockRunner struct {
	mu        sync.Mutex
	Responses []Response
	commands  []string
}

// NewMockRunner creates a MockRunner answering with the given responses.
func NewMockRunner(responses ...Response) *MockRunner {
	return &MockRunner{Responses: responses}
}

// Run records the command and returns the configured response.
func (m *MockRunner) Run(ctx context.Context, command string) (string, error) {
	m.mu.Lock()
	m.commands = append(m.commands, command)
	responses := m.Responses
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, r := range responses {
		if strings.Contains(command, r.Match) {
			if r.Do != nil {
				r.Do(command)
			}
			return r.Output, r.Err
		}
	}
	return "", nil
}

// Commands returns the commands run so far.
func (m *MockRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Ensure MockRunner implements process.Runner.
var _ process.Runner = (*MockRunner)(nil)
