package testing

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientScriptedResult(t *testing.T) {
	m := NewMockClient("vm-01")
	m.Script("uptime", CommandResult{Stdout: []byte("up 3 days"), ExitCode: 0})
	m.Script("broken", CommandResult{Stderr: []byte("boom"), ExitCode: 2})

	out, _, code, err := m.Exec("uptime")
	require.NoError(t, err)
	assert.Equal(t, "up 3 days", string(out))
	assert.Equal(t, 0, code)

	_, errOut, code, err := m.Exec("broken")
	require.NoError(t, err)
	assert.Equal(t, "boom", string(errOut))
	assert.Equal(t, 2, code)

	assert.Equal(t, []string{"uptime", "broken"}, m.ExecCalls)
}

func TestMockClientUnscriptedSucceeds(t *testing.T) {
	m := NewMockClient("vm-01")

	_, _, code, err := m.Exec("anything")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestMockClientDefaultErr(t *testing.T) {
	m := NewMockClient("vm-01")
	m.DefaultErr = errors.New("connection reset")

	_, _, code, err := m.Exec("anything")
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestMockClientExecStream(t *testing.T) {
	m := NewMockClient("vm-01")
	m.Script("ls", CommandResult{Stdout: []byte("file\n"), Stderr: []byte("warn\n")})

	var stdout, stderr bytes.Buffer
	code, err := m.ExecStream("ls", &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "file\n", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestMockClientCloseBlocksSessions(t *testing.T) {
	m := NewMockClient("vm-01")

	s, err := m.NewSession()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed)

	_, err = m.NewSession()
	assert.Error(t, err)
}
