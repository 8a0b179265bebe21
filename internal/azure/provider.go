package azure

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/logger"
	"github.com/jspahr/azfleet/internal/tunnel"
	"github.com/jspahr/azfleet/internal/util"
)

// tunnelReadyTimeout bounds how long we wait for 'az network bastion
// tunnel' to start accepting on its local port.
const tunnelReadyTimeout = 30 * time.Second

// bastionHandle is the tunnel.Handle produced by BastionProvider. It owns
// the long-lived az subprocess behind the tunnel.
type bastionHandle struct {
	cmd       *exec.Cmd
	localPort int
	targetID  string
}

func (h *bastionHandle) LocalPort() int { return h.localPort }

// BastionProvider implements tunnel.Provider by spawning 'az network
// bastion tunnel' subprocesses. Each tunnel is one child process holding a
// local listener; closing the tunnel kills the process.
type BastionProvider struct {
	// Binary is the az executable. Empty means "az".
	Binary string

	log logger.Logger
}

// NewBastionProvider returns a provider that shells out to the az CLI.
func NewBastionProvider() *BastionProvider {
	return &BastionProvider{log: logger.NewEnvLogger("[azure]")}
}

// Create spawns the tunnel subprocess and blocks until its local listener
// accepts connections or the ready timeout expires.
func (p *BastionProvider) Create(bastion, resourceGroup, targetID string, localPort, remotePort int) (tunnel.Handle, error) {
	binary := p.Binary
	if binary == "" {
		binary = "az"
	}

	cmd := exec.Command(binary,
		"network", "bastion", "tunnel",
		"--name", bastion,
		"--resource-group", resourceGroup,
		"--target-resource-id", targetID,
		"--resource-port", strconv.Itoa(remotePort),
		"--port", strconv.Itoa(localPort),
	)

	if err := cmd.Start(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't start Bastion tunnel to %s", util.ShortResourceName(targetID)),
			"Check the az CLI is installed and you're logged in")
	}

	p.log.Debug("tunnel subprocess started for %s (pid %d, local port %d)", util.ShortResourceName(targetID), cmd.Process.Pid, localPort)

	if err := waitForListener(localPort, tunnelReadyTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Bastion tunnel to %s never came up on port %d", util.ShortResourceName(targetID), localPort),
			"Check the Bastion host allows native client tunneling and the VM is running")
	}

	return &bastionHandle{cmd: cmd, localPort: localPort, targetID: targetID}, nil
}

// Close kills the tunnel subprocess and reaps it.
func (p *BastionProvider) Close(h tunnel.Handle) error {
	bh, ok := h.(*bastionHandle)
	if !ok || bh.cmd == nil || bh.cmd.Process == nil {
		return nil
	}

	p.log.Debug("closing tunnel to %s (pid %d)", util.ShortResourceName(bh.targetID), bh.cmd.Process.Pid)

	if err := bh.cmd.Process.Kill(); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Couldn't kill tunnel process for %s", bh.targetID))
	}
	// Wait reaps the child; the kill makes it return an error we don't care about.
	_ = bh.cmd.Wait()
	return nil
}

// CheckHealth dials the tunnel's local listener.
func (p *BastionProvider) CheckHealth(h tunnel.Handle) bool {
	bh, ok := h.(*bastionHandle)
	if !ok {
		return false
	}

	conn, err := net.DialTimeout("tcp", localAddr(bh.localPort), time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// AllocatePort asks the kernel for a free local port and releases it for
// the tunnel subprocess to claim.
func (p *BastionProvider) AllocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTunnel,
			"Couldn't allocate a local port",
			"Check local firewall or port exhaustion")
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port, nil
}

// waitForListener polls the local port until something accepts or the
// deadline passes.
func waitForListener(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", localAddr(port), 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("port %d not accepting after %s", port, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func localAddr(port int) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}
