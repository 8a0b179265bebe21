package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jspahr/azfleet/internal/logger"
	"github.com/jspahr/azfleet/internal/tunnel"
	tunneltest "github.com/jspahr/azfleet/internal/tunnel/testing"
	"github.com/jspahr/azfleet/pkg/sshutil"
	sshtest "github.com/jspahr/azfleet/pkg/sshutil/testing"
)

func testTargets(names ...string) []Target {
	targets := make([]Target, 0, len(names))
	for _, n := range names {
		targets = append(targets, Target{Name: n, ResourceID: "/vms/" + n})
	}
	return targets
}

func testConfig() Config {
	return Config{
		Bastion:              "bastion-1",
		BastionResourceGroup: "rg-network",
		RemotePort:           22,
	}
}

// newTestOrchestrator wires a real pool with a fake provider and a dialer
// that hands out mock SSH clients.
func newTestOrchestrator(cfg Config, script func(m *sshtest.MockClient)) (*Orchestrator, *tunneltest.FakeProvider) {
	provider := tunneltest.NewFakeProvider()
	pool := tunnel.NewPool(provider, tunnel.Options{Logger: logger.Noop()})

	dial := func(vmName string, localPort int) (sshutil.SSHClient, error) {
		m := sshtest.NewMockClient(vmName)
		if script != nil {
			script(m)
		}
		return m, nil
	}

	return NewOrchestrator(pool, dial, cfg, logger.Noop()), provider
}

func TestRunAllTargetsSucceed(t *testing.T) {
	o, provider := newTestOrchestrator(testConfig(), func(m *sshtest.MockClient) {
		m.Script("uptime", sshtest.CommandResult{Stdout: []byte(m.Host + " up")})
	})

	result, err := o.Run(context.Background(), testTargets("vm-a", "vm-b", "vm-c"), "uptime")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Success())

	// Output is sorted by VM name regardless of completion order.
	require.Len(t, result.VMResults, 3)
	assert.Equal(t, "vm-a", result.VMResults[0].VM)
	assert.Equal(t, "vm-c", result.VMResults[2].VM)
	assert.Contains(t, string(result.VMResults[0].Output), "vm-a up")

	// One tunnel per distinct VM.
	assert.Equal(t, 3, provider.CreateCount())
}

func TestRunReusesTunnelsAcrossBatches(t *testing.T) {
	o, provider := newTestOrchestrator(testConfig(), nil)
	targets := testTargets("vm-a", "vm-b")

	_, err := o.Run(context.Background(), targets, "true")
	require.NoError(t, err)
	_, err = o.Run(context.Background(), targets, "true")
	require.NoError(t, err)

	// The second batch reused the pooled tunnels.
	assert.Equal(t, 2, provider.CreateCount())
}

func TestRunReportsCommandFailure(t *testing.T) {
	o, _ := newTestOrchestrator(testConfig(), func(m *sshtest.MockClient) {
		if m.Host == "vm-b" {
			m.Script("deploy", sshtest.CommandResult{Stderr: []byte("unit failed"), ExitCode: 1})
		}
	})

	result, err := o.Run(context.Background(), testTargets("vm-a", "vm-b"), "deploy")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Success())

	var failedResult VMResult
	for _, r := range result.VMResults {
		if r.VM == "vm-b" {
			failedResult = r
		}
	}
	assert.Equal(t, 1, failedResult.ExitCode)
	assert.Contains(t, string(failedResult.Output), "unit failed")
}

func TestRunFailFastSkipsRemainingTargets(t *testing.T) {
	cfg := testConfig()
	cfg.FailFast = true
	cfg.MaxParallel = 1

	o, _ := newTestOrchestrator(cfg, func(m *sshtest.MockClient) {
		if m.Host == "vm-a" {
			m.Script("deploy", sshtest.CommandResult{ExitCode: 1})
		}
	})

	result, err := o.Run(context.Background(), testTargets("vm-a", "vm-b", "vm-c"), "deploy")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Passed)
	assert.Equal(t, 3, result.Failed)
}

func TestRunTunnelCreationFailureLandsInResult(t *testing.T) {
	provider := tunneltest.NewFakeProvider()
	provider.CreateErr = errors.New("bastion unreachable")
	pool := tunnel.NewPool(provider, tunnel.Options{Logger: logger.Noop()})

	dial := func(vmName string, localPort int) (sshutil.SSHClient, error) {
		return sshtest.NewMockClient(vmName), nil
	}
	o := NewOrchestrator(pool, dial, testConfig(), logger.Noop())

	result, err := o.Run(context.Background(), testTargets("vm-a"), "uptime")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.ErrorContains(t, result.VMResults[0].Err, "bastion unreachable")
}

func TestRunNoTargets(t *testing.T) {
	o, _ := newTestOrchestrator(testConfig(), nil)

	_, err := o.Run(context.Background(), nil, "uptime")
	assert.ErrorContains(t, err, "No VMs to run against")
}

// slowClient delays command execution to exercise timeouts.
type slowClient struct {
	*sshtest.MockClient
	delay time.Duration
}

func (s *slowClient) Exec(cmd string) ([]byte, []byte, int, error) {
	time.Sleep(s.delay)
	return s.MockClient.Exec(cmd)
}

func TestRunCommandTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	provider := tunneltest.NewFakeProvider()
	pool := tunnel.NewPool(provider, tunnel.Options{Logger: logger.Noop()})
	dial := func(vmName string, localPort int) (sshutil.SSHClient, error) {
		return &slowClient{MockClient: sshtest.NewMockClient(vmName), delay: 500 * time.Millisecond}, nil
	}
	o := NewOrchestrator(pool, dial, cfg, logger.Noop())

	result, err := o.Run(context.Background(), testTargets("vm-a"), "sleep 60")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.ErrorContains(t, result.VMResults[0].Err, "didn't finish in time")
}

func TestRunMaxParallelBoundsTunnels(t *testing.T) {
	cfg := testConfig()
	cfg.MaxParallel = 2

	o, provider := newTestOrchestrator(cfg, nil)

	result, err := o.Run(context.Background(), testTargets("a", "b", "c", "d", "e"), "true")
	require.NoError(t, err)

	assert.Equal(t, 5, result.Passed)
	assert.Equal(t, 5, provider.CreateCount())
}
