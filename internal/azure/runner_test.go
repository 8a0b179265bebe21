package azure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fleeterrors "github.com/jspahr/azfleet/internal/errors"
)

func TestCLIRunnerInvokesBinary(t *testing.T) {
	r := NewCLIRunner()
	r.Binary = "echo"

	out, err := r.Run(context.Background(), "vm", "list")
	require.NoError(t, err)
	assert.Contains(t, string(out), "vm list")
	assert.Contains(t, string(out), "--output json")
}

func TestCLIRunnerMissingBinary(t *testing.T) {
	r := NewCLIRunner()
	r.Binary = "azfleet-no-such-binary"

	_, err := r.Run(context.Background(), "vm", "list")
	require.Error(t, err)
	assert.True(t, fleeterrors.IsCode(err, fleeterrors.ErrAzure))
	assert.ErrorContains(t, err, "CLI not found")
}

func TestCLIRunnerCommandFailure(t *testing.T) {
	r := NewCLIRunner()
	r.Binary = "false"

	_, err := r.Run(context.Background(), "vm", "list")
	require.Error(t, err)
	assert.True(t, fleeterrors.IsCode(err, fleeterrors.ErrAzure))
	assert.ErrorContains(t, err, "az vm failed")
}

func TestStderrTail(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"single line", "ERROR: not logged in", "ERROR: not logged in"},
		{"trims to last three lines", "a\nb\nc\nd\ne", "c d e"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stderrTail([]byte(tt.stderr)))
		})
	}
}
