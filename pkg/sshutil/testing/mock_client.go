// Package testing provides a scriptable mock SSHClient for testing code
// that executes commands on fleet VMs without real connections.
package testing

import (
	"fmt"
	"io"
	"sync"

	"github.com/jspahr/azfleet/pkg/sshutil"
)

// CommandResult scripts the outcome of one command.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// MockClient implements sshutil.SSHClient with scripted results.
// Unscripted commands succeed with empty output. Safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// Host and Address are returned by the getter methods.
	Host    string
	Address string

	// Results maps a command string to its scripted outcome.
	Results map[string]CommandResult

	// DefaultErr, if set, is returned for unscripted commands.
	DefaultErr error

	// ExecCalls records every executed command in order.
	ExecCalls []string

	// Closed reports whether Close was called.
	Closed bool
}

// NewMockClient returns a mock that succeeds at every command.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		Host:    host,
		Address: "127.0.0.1:0",
		Results: make(map[string]CommandResult),
	}
}

// Script sets the outcome for a command.
func (m *MockClient) Script(cmd string, result CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[cmd] = result
}

// Exec returns the scripted result for cmd.
func (m *MockClient) Exec(cmd string) ([]byte, []byte, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecCalls = append(m.ExecCalls, cmd)
	if result, ok := m.Results[cmd]; ok {
		return result.Stdout, result.Stderr, result.ExitCode, result.Err
	}
	if m.DefaultErr != nil {
		return nil, nil, -1, m.DefaultErr
	}
	return nil, nil, 0, nil
}

// ExecStream writes the scripted output to the writers.
func (m *MockClient) ExecStream(cmd string, stdout, stderr io.Writer) (int, error) {
	out, errOut, code, err := m.Exec(cmd)
	if err != nil {
		return -1, err
	}
	if len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	if len(errOut) > 0 {
		_, _ = stderr.Write(errOut)
	}
	return code, nil
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// GetHost returns the scripted host name.
func (m *MockClient) GetHost() string { return m.Host }

// GetAddress returns the scripted address.
func (m *MockClient) GetAddress() string { return m.Address }

// NewSession returns a no-op session, or an error if the client is closed.
func (m *MockClient) NewSession() (sshutil.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return nil, fmt.Errorf("client is closed")
	}
	return nopSession{}, nil
}

type nopSession struct{}

func (nopSession) Close() error { return nil }
