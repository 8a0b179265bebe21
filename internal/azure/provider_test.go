package azure

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePort(t *testing.T) {
	p := NewBastionProvider()

	port, err := p.AllocatePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)

	// The port is released: we can bind it ourselves.
	l, err := net.Listen("tcp", localAddr(port))
	require.NoError(t, err)
	l.Close()
}

func TestAllocatePortReturnsDistinctPorts(t *testing.T) {
	p := NewBastionProvider()

	a, err := p.AllocatePort()
	require.NoError(t, err)
	b, err := p.AllocatePort()
	require.NoError(t, err)

	// Not guaranteed by the kernel, but overwhelmingly likely back to back.
	assert.NotEqual(t, a, b)
}

func TestWaitForListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	assert.NoError(t, waitForListener(port, time.Second))
}

func TestWaitForListenerTimesOut(t *testing.T) {
	p := NewBastionProvider()
	port, err := p.AllocatePort()
	require.NoError(t, err)

	// Nothing is listening on the freed port.
	err = waitForListener(port, 300*time.Millisecond)
	assert.ErrorContains(t, err, "not accepting")
}

func TestCheckHealth(t *testing.T) {
	p := NewBastionProvider()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port

	h := &bastionHandle{localPort: port}
	assert.True(t, p.CheckHealth(h))

	l.Close()
	assert.False(t, p.CheckHealth(h))
}

func TestCloseNilHandle(t *testing.T) {
	p := NewBastionProvider()

	// A handle with no process behind it must be a safe no-op.
	assert.NoError(t, p.Close(&bastionHandle{}))
	assert.NoError(t, p.Close(nil))
}
